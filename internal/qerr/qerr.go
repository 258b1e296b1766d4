// Package qerr defines the error taxonomy surfaced by the analysis core.
package qerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedFormat
	KindMalformedCircuit
	KindInvalidCircuit
	KindTensorShapeMismatch
	// KindMitigationFallback is a warning kind. It is logged and counted but
	// never returned from an analysis call.
	KindMitigationFallback
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindUnsupportedFormat:   "UnsupportedFormatError",
	KindMalformedCircuit:    "MalformedCircuitError",
	KindInvalidCircuit:      "InvalidCircuitError",
	KindTensorShapeMismatch: "TensorShapeMismatchError",
	KindMitigationFallback:  "MitigationFallbackWarning",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Stage names attached to errors.
const (
	StageIngest    = "ingest"
	StageValidate  = "validate"
	StageExecute   = "execute"
	StageMitigate  = "mitigate"
	StageOptimize  = "optimize"
	StageTranspile = "transpile"
)

// Error is a classified failure with the stage it happened in.
type Error struct {
	Kind   Kind
	Stage  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of stage and reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFormat   = &Error{Kind: KindUnsupportedFormat}
	ErrMalformedCircuit    = &Error{Kind: KindMalformedCircuit}
	ErrInvalidCircuit      = &Error{Kind: KindInvalidCircuit}
	ErrTensorShapeMismatch = &Error{Kind: KindTensorShapeMismatch}
)

// New returns a classified error.
func New(kind Kind, stage, reason string) error {
	return errors.WithStack(&Error{Kind: kind, Stage: stage, Reason: reason})
}

// Newf is New with a formatted reason.
func Newf(kind Kind, stage, format string, args ...any) error {
	return New(kind, stage, fmt.Sprintf(format, args...))
}

// Wrap classifies an underlying error. A nil err returns nil.
func Wrap(err error, kind Kind, stage, reason string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Stage: stage, Reason: reason, Err: err})
}

// UnsupportedFormat reports an unknown format tag.
func UnsupportedFormat(tag string) error {
	return Newf(KindUnsupportedFormat, StageIngest, "unknown format %q", tag)
}

// Malformed reports unparseable circuit text.
func Malformed(stage, format string, args ...any) error {
	return Newf(KindMalformedCircuit, stage, format, args...)
}

// Invalid reports a structurally invalid circuit.
func Invalid(stage, format string, args ...any) error {
	return Newf(KindInvalidCircuit, stage, format, args...)
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if qe, ok := As(err); ok {
		return qe.Kind
	}
	return KindUnknown
}

// StageOf returns the stage of the first classified error in err's chain.
func StageOf(err error) string {
	if qe, ok := As(err); ok {
		return qe.Stage
	}
	return ""
}
