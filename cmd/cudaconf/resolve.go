package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cudaconf/internal/store"
	"cudaconf/internal/toolchain"
)

func newResolveCmd(opts *globalOptions) *cobra.Command {
	var (
		timeout time.Duration
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the toolchain and commit it to the configuration store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			pipeline, err := toolchain.FromConfig(cfg, logger)
			if err != nil {
				return err
			}

			if dryRun {
				resolved, err := pipeline.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderResolved(resolved, "dry run, nothing written"))
				return nil
			}

			st := store.New(cfg.Store.Path, logger)
			outcome, resolved, err := pipeline.Commit(ctx, st)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderResolved(resolved, fmt.Sprintf("%s %s", st.Path(), outcome)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "abort the whole pass after this long (0 disables)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve without touching the configuration store")
	return cmd
}
