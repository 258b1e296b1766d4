package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deqcore/internal/analysis"
	"deqcore/internal/format"
	"deqcore/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Format    string
	Noise     float64
	Threshold int
	Save      bool
	Owner     string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Simulate a circuit and apply error mitigation",
		Long: `Analyze parses a circuit, counts Clifford and non-Clifford gates, picks a
mitigation strategy and reports ideal, raw and mitigated observables together
with the circuit re-emitted as Qiskit and Cirq code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "circuit format (qiskit|cirq|qasm); inferred from the extension when empty")
	cmd.Flags().Float64VarP(&opts.Noise, "noise", "p", 0.01, "depolarizing noise level in [0, 1]")
	cmd.Flags().IntVarP(&opts.Threshold, "threshold", "t", -1, "optimize with this size threshold (negative disables)")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the report in the history database")
	cmd.Flags().StringVar(&opts.Owner, "owner", defaultOwner(), "owner id for stored reports")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions, path string) error {
	out := opts.formatter(cmd)

	src, err := readSource(path)
	if err != nil {
		return out.Error(err)
	}
	req := analysis.Request{Source: src, Format: formatFor(path, opts.Format), NoiseLevel: opts.Noise}
	if opts.Threshold >= 0 {
		req.SizeThreshold = analysis.Threshold(opts.Threshold)
	}
	out.VerboseLog("analyzing %s as %s at p=%g", path, req.Format, req.NoiseLevel)

	report, err := opts.analyzer.Analyze(req)
	if err != nil {
		return out.Error(err)
	}

	if opts.Save {
		id, err := saveRecord(cmd.Context(), opts.RootOptions, opts.Owner, store.KindAnalysis, report.CircuitID, report.Format, report)
		if err != nil {
			return out.Error(err)
		}
		out.VerboseLog("saved record %s", id)
	}
	return out.Success(report, renderReport(report))
}

func saveRecord(ctx context.Context, opts *RootOptions, owner string, kind store.Kind, circuitID string, tag format.Tag, payload any) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := opts.openStore(opts.cfg.Storage, opts.logger)
	if err != nil {
		return "", WrapExitError(ExitFailure, "open store", err)
	}
	defer s.Close()

	rec, err := store.NewRecord(owner, kind, circuitID, tag.String(), payload)
	if err != nil {
		return "", WrapExitError(ExitFailure, "build record", err)
	}
	if err := s.Save(ctx, rec); err != nil {
		return "", WrapExitError(ExitFailure, "save record", err)
	}
	return rec.ID, nil
}

// formatFor returns flag when set, otherwise guesses from the file
// extension. An unknown extension is passed through and rejected by the
// analyzer.
func formatFor(path, flag string) string {
	if flag != "" {
		return flag
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".qasm":
		return string(format.QASM)
	case ".py":
		data, err := os.ReadFile(path)
		if err == nil && strings.Contains(string(data), "import cirq") {
			return string(format.Cirq)
		}
		return string(format.Qiskit)
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func renderReport(r *analysis.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Circuit   %s\n", r.CircuitID)
	fmt.Fprintf(&sb, "Format    %s (%d qubits, executor %s, p=%g)\n", r.Format, r.NumQubits, r.Executor, r.NoiseLevel)
	fmt.Fprintf(&sb, "Gates     clifford=%d non_clifford=%d measure=%d\n", r.Counts.Clifford, r.Counts.NonClifford, r.Counts.Measure)
	fmt.Fprintf(&sb, "Strategy  %s", r.Strategy.Selected)
	if r.Strategy.Used != r.Strategy.Selected {
		fmt.Fprintf(&sb, " -> %s (%s)", r.Strategy.Used, r.Strategy.Fallback)
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%-10s %12s %12s\n", "", "<Z0>", "energy")
	for _, row := range []struct {
		name string
		e, h float64
	}{
		{"ideal", r.Results.Ideal.Expectation, r.Results.Ideal.Energy},
		{"raw", r.Results.Raw.Expectation, r.Results.Raw.Energy},
		{"mitigated", r.Results.Mitigated.Expectation, r.Results.Mitigated.Energy},
	} {
		fmt.Fprintf(&sb, "%-10s %12.4f %12.4f\n", row.name, row.e, row.h)
	}
	for _, tag := range analysis.TranspileTargets {
		fmt.Fprintf(&sb, "\n--- %s ---\n%s", tag, r.TranspiledCode[tag])
	}
	if r.Optimization != nil {
		sb.WriteString("\n")
		sb.WriteString(renderOptimization(r.Optimization))
	}
	return strings.TrimRight(sb.String(), "\n")
}
