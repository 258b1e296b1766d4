package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deqcore/internal/analysis"
	"deqcore/internal/store"
)

// OptimizeOptions holds flags for the optimize command.
type OptimizeOptions struct {
	*RootOptions
	Format    string
	Threshold int
	Save      bool
	Owner     string
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Shrink a circuit and print it in its own format",
		Long: `Optimize rewrites a circuit with the local peephole pass when it has at most
threshold operations and with the graph pass otherwise, then prints the
result in the input format with a before/after comparison.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "circuit format (qiskit|cirq|qasm); inferred from the extension when empty")
	cmd.Flags().IntVarP(&opts.Threshold, "threshold", "t", -1, "size threshold (negative uses the configured one)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the report in the history database")
	cmd.Flags().StringVar(&opts.Owner, "owner", defaultOwner(), "owner id for stored reports")

	return cmd
}

func runOptimize(cmd *cobra.Command, opts *OptimizeOptions, path string) error {
	out := opts.formatter(cmd)

	src, err := readSource(path)
	if err != nil {
		return out.Error(err)
	}
	req := analysis.Request{Source: src, Format: formatFor(path, opts.Format)}
	if opts.Threshold >= 0 {
		req.SizeThreshold = analysis.Threshold(opts.Threshold)
	}

	report, err := opts.analyzer.Optimize(req)
	if err != nil {
		return out.Error(err)
	}
	if opts.Save {
		id, err := saveRecord(cmd.Context(), opts.RootOptions, opts.Owner, store.KindOptimization, report.CircuitID, report.Format, report)
		if err != nil {
			return out.Error(err)
		}
		out.VerboseLog("saved record %s", id)
	}
	return out.Success(report, renderOptimization(report))
}

func renderOptimization(r *analysis.OptimizeReport) string {
	var sb strings.Builder
	rep := r.Report
	fmt.Fprintf(&sb, "Optimized (%s pass)\n", rep.Path)
	fmt.Fprintf(&sb, "  gates  %d -> %d\n", rep.OriginalGateCount, rep.OptimizedGateCount)
	fmt.Fprintf(&sb, "  depth  %d -> %d\n", rep.OriginalDepth, rep.OptimizedDepth)
	fmt.Fprintf(&sb, "\n--- %s ---\n%s", r.Format, r.Code)
	return strings.TrimRight(sb.String(), "\n")
}
