package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cudaconf/internal/config"
	"cudaconf/internal/logging"
	"cudaconf/internal/storelock"
)

const buildVersion = "0.1.0-dev"

type globalOptions struct {
	configPath string
	logFile    string
	verbose    bool

	logger *logging.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cudaconf",
		Short: "Resolve a usable CUDA toolchain for this host",
		Long: `cudaconf decides which CUDA toolkit, device targets and PTX ISA versions
the installed LLVM backend and NVIDIA driver can use together, and records
the decision in a configuration file consumed by downstream builds.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       buildVersion,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "settings file (default: system and user config)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "append log events to this file instead of stderr")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug events")
	root.PersistentPostRunE = func(*cobra.Command, []string) error {
		if opts.logger == nil {
			return nil
		}
		return opts.logger.Close()
	}

	root.AddCommand(
		newResolveCmd(opts),
		newShowCmd(opts),
		newConfigCmd(opts),
		newUnlockCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads settings and builds the logger they describe.
func (o *globalOptions) load() (config.Config, *logging.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return cfg, nil, err
	}
	if o.verbose {
		level = logging.LevelDebug
	}

	format := logging.Format(cfg.Logging.Format)
	if o.logFile == "" {
		o.logger = logging.NewLoggerWithWriter(level, format, os.Stderr)
		return cfg, o.logger, nil
	}
	o.logger, err = logging.NewFileLogger(level, format, o.logFile)
	return cfg, o.logger, err
}

func newUnlockCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Remove a stale store lease left by a crashed run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			manager := storelock.NewManager(filepath.Dir(cfg.Store.Path), logger)
			if err := manager.ForceUnlock(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lease %s cleared\n", manager.Path())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cudaconf version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cudaconf version %s\n", buildVersion)
		},
	}
}
