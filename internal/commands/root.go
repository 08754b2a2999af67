// Package commands provides the CLI commands for the bridgegen and
// trampolinegen tools.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/config"
	"martianoff/dbridge/internal/declgen"
	"martianoff/dbridge/internal/outsum"
	"martianoff/dbridge/internal/reflectgen"
	"martianoff/dbridge/internal/registry"
	"martianoff/dbridge/internal/trampoline"
)

// globalFlags are the persistent flags shared by both tools.
type globalFlags struct {
	verbose    bool
	configPath string
	logger     *zap.Logger
}

// newRoot creates a tool's root command with the shared flags and the
// verify and version subcommands. nargs is the exact number of positional
// arguments run expects.
func newRoot(use, short, long string, nargs int, run func(cmd *cobra.Command, flags *globalFlags, args []string) error) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          exactArgs(nargs),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if flags.logger != nil {
				_ = flags.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args)
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log every unit, type and skipped member")
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to "+config.FileName+" (default: search upwards from the working directory)")

	root.AddCommand(newVerifyCommand())
	root.AddCommand(newVersionCommand(root.Name()))
	return root
}

// exactArgs rejects a wrong argument count with the command's usage.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("expected %d argument(s), got %d\n%s", n, len(args), cmd.UsageString())
		}
		return nil
	}
}

// setupLogging installs a development logger with --verbose and a
// warn-level production logger otherwise.
func (f *globalFlags) setupLogging() error {
	var (
		logger *zap.Logger
		err    error
	)
	if f.verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	f.logger = logger
	registry.SetLogger(logger)
	reflectgen.SetLogger(logger)
	declgen.SetLogger(logger)
	trampoline.SetLogger(logger)
	return nil
}

// loadConfig reads --config when given, else searches upwards from the
// working directory.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.Load(f.configPath)
	}
	return config.FindAndLoad(".")
}

// recordChecksums writes the dbridge.sum manifest when enabled.
func recordChecksums(cfg *config.Config, outputDir string, files []string) error {
	if !cfg.Output.Checksums {
		return nil
	}
	if _, err := outsum.Record(outputDir, files); err != nil {
		return fmt.Errorf("recording checksums: %w", err)
	}
	return nil
}

// Message renders err for the terminal.
func Message(err error) string {
	var (
		loadErr     *bridgeerr.LoadError
		configErr   *bridgeerr.ConfigError
		emissionErr *bridgeerr.EmissionError
	)
	switch {
	case errors.As(err, &loadErr):
		return "cannot load metadata: " + err.Error()
	case errors.As(err, &configErr):
		return "invalid configuration: " + err.Error()
	case errors.As(err, &emissionErr):
		return "companion module is invalid, nothing was written: " + err.Error()
	default:
		return err.Error()
	}
}

// Execute runs cmd and exits with status 1 on failure.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", Message(err))
		os.Exit(1)
	}
}
