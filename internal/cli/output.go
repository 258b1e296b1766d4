package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"deqcore/internal/qerr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // I/O, config and storage failures
	ExitAnalysis = 2 // classified analysis errors
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Classified analysis
// errors map to ExitAnalysis, anything else to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if _, ok := qerr.As(err); ok {
		return ExitAnalysis
	}
	return ExitFailure
}

// ValidOutputs lists the accepted --output values.
var ValidOutputs = []string{"text", "json", "yaml"}

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the envelope for structured output.
type Response struct {
	Status string         `json:"status" yaml:"status"`
	Data   any            `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorResponse describes a failure in structured output.
type ErrorResponse struct {
	Kind    string `json:"kind" yaml:"kind"`
	Stage   string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Success writes data. Text output uses text when it is non-empty and
// falls back to fmt's default formatting of data.
func (f *OutputFormatter) Success(data any, text string) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	case "yaml":
		return f.encodeYAML(Response{Status: "ok", Data: data})
	}
	if text == "" {
		text = fmt.Sprint(data)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error writes err and returns it wrapped with its exit code.
func (f *OutputFormatter) Error(err error) error {
	resp := &ErrorResponse{Kind: qerr.KindOf(err).String(), Stage: qerr.StageOf(err), Message: err.Error()}
	switch f.Format {
	case "json":
		if encErr := json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: resp}); encErr != nil {
			return encErr
		}
	case "yaml":
		if encErr := f.encodeYAML(Response{Status: "error", Error: resp}); encErr != nil {
			return encErr
		}
	default:
		fmt.Fprintf(f.errWriter(), "Error [%s]: %s\n", resp.Kind, resp.Message)
		if f.Verbose {
			fmt.Fprintf(f.errWriter(), "%+v\n", err)
		}
	}
	return WrapExitError(GetExitCode(err), resp.Kind, err)
}

// VerboseLog writes a diagnostic line to ErrWriter when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) encodeYAML(v any) error {
	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
