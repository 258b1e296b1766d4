package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	From string
	To   string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a circuit between qiskit, cirq and qasm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "source format; inferred from the extension when empty")
	cmd.Flags().StringVar(&opts.To, "to", "qasm", "target format")

	return cmd
}

// Converted is the structured output of convert.
type Converted struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Code string `json:"code" yaml:"code"`
}

func runConvert(cmd *cobra.Command, opts *ConvertOptions, path string) error {
	out := opts.formatter(cmd)

	src, err := readSource(path)
	if err != nil {
		return out.Error(err)
	}
	from := formatFor(path, opts.From)
	code, err := opts.analyzer.Convert(src, from, opts.To)
	if err != nil {
		return out.Error(err)
	}
	return out.Success(Converted{From: from, To: opts.To, Code: code}, strings.TrimRight(code, "\n"))
}
