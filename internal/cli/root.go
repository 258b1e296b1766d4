// Package cli implements the deqcore command line.
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deqcore/internal/analysis"
	"deqcore/internal/config"
	"deqcore/internal/logging"
	"deqcore/internal/store"
)

// RootOptions holds global flags and the state shared by all commands.
type RootOptions struct {
	ConfigPath string
	Output     string
	Verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	analyzer *analysis.Analyzer
	// openStore is replaced in tests.
	openStore func(cfg config.StorageConfig, logger *zap.Logger) (store.ResultStore, error)
}

// NewRootCommand creates the deqcore root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{openStore: openCachedStore})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deqcore",
		Short: "Quantum circuit analysis and error mitigation",
		Long: `deqcore parses quantum circuits written as Qiskit or Cirq scripts or
OpenQASM 2.0, simulates them under depolarizing noise and applies the error
mitigation strategy that fits the circuit's gate mix.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.setup(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML config file")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")

	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewOptimizeCommand(opts))
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewViewCommand(opts))

	return cmd
}

func (o *RootOptions) setup() error {
	if !slices.Contains(ValidOutputs, o.Output) {
		return WrapExitError(ExitFailure, "invalid flag",
			errors.Errorf("output %q must be one of %v", o.Output, ValidOutputs))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitFailure, "load config", err)
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return WrapExitError(ExitFailure, "build logger", err)
	}

	o.cfg = cfg
	o.logger = logger
	o.analyzer = analysis.New(cfg, logger)
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func openCachedStore(cfg config.StorageConfig, logger *zap.Logger) (store.ResultStore, error) {
	s, err := store.Open(cfg.Path, logger)
	if err != nil {
		return nil, err
	}
	cached, err := store.NewCached(s, cfg.CacheSize)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return cached, nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", WrapExitError(ExitFailure, fmt.Sprintf("read %s", path), err)
	}
	return string(data), nil
}
