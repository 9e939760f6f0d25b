package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cudaconf/internal/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect cudaconf settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test [path]",
		Short: "Test a settings file for validity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg    config.Config
				source string
				err    error
			)
			switch {
			case len(args) == 1:
				source = args[0]
				cfg, err = config.LoadFrom(source)
			case opts.configPath != "":
				source = opts.configPath
				cfg, err = config.LoadFrom(source)
			default:
				source = config.SystemConfigPath() + " + " + config.UserConfigPath()
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration is valid (%s)\n", source)
			fmt.Fprintf(out, "  use_artifacts: %t\n", cfg.Toolkit.ArtifactsEnabled())
			if cfg.Toolkit.Version != "" {
				fmt.Fprintf(out, "  pinned toolkit: %s\n", cfg.Toolkit.Version)
			}
			fmt.Fprintf(out, "  catalogue: %d artifact(s)\n", len(cfg.Artifacts.Catalogue))
			fmt.Fprintf(out, "  store: %s\n", cfg.Store.Path)
			return nil
		},
	})

	return cmd
}
