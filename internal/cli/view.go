package cli

import (
	"github.com/spf13/cobra"

	"deqcore/internal/format"
	"deqcore/internal/tui"
)

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	Format    string
	Noise     float64
	Threshold int
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Open a circuit in the interactive viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "circuit format (qiskit|cirq|qasm); inferred from the extension when empty")
	cmd.Flags().Float64VarP(&opts.Noise, "noise", "p", 0.01, "initial depolarizing noise level")
	cmd.Flags().IntVarP(&opts.Threshold, "threshold", "t", -1, "optimizer size threshold (negative uses the configured one)")

	return cmd
}

func runView(cmd *cobra.Command, opts *ViewOptions, path string) error {
	out := opts.formatter(cmd)

	src, err := readSource(path)
	if err != nil {
		return out.Error(err)
	}
	tag, err := format.ParseTag(formatFor(path, opts.Format))
	if err != nil {
		return out.Error(err)
	}
	c, err := opts.analyzer.Registry().ToIR(src, tag)
	if err != nil {
		return out.Error(err)
	}
	threshold := opts.Threshold
	if threshold < 0 {
		threshold = opts.cfg.Optimizer.SizeThreshold
	}
	if err := tui.Run(opts.analyzer, c, tag, opts.Noise, threshold); err != nil {
		return out.Error(WrapExitError(ExitFailure, "run viewer", err))
	}
	return nil
}
