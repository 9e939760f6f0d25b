package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"cudaconf/internal/store"
)

var errUnavailable = errors.New("toolchain unavailable")

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	var path, format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted toolchain configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				cfg, _, err := opts.load()
				if err != nil {
					return err
				}
				path = cfg.Store.Path
			}

			c, ok, err := store.Load(path)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s does not exist (run `cudaconf resolve`)", errUnavailable, path)
			}
			if !c.Available() {
				return fmt.Errorf("%w: the last resolution in %s did not complete", errUnavailable, path)
			}

			out := cmd.OutOrStdout()
			switch {
			case format == "raw", format == "auto" && !isTerminal(out):
				_, err = out.Write(c.Encode())
				return err
			case format != "pretty" && format != "auto":
				return fmt.Errorf("unknown format %q (want auto, pretty or raw)", format)
			}
			fmt.Fprint(out, renderConfiguration(c, path))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "configuration file (default: store.path from settings)")
	cmd.Flags().StringVar(&format, "format", "auto", "output format: auto (pretty on a terminal), pretty or raw")
	return cmd
}
