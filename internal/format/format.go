// Package format converts between native circuit text and the circuit IR.
//
// Three representations are supported: the imperative builder form used by
// Qiskit scripts, the operation-composition form used by Cirq scripts, and
// OpenQASM 2.0. Conversion between two native forms always passes through
// the IR.
package format

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
)

// Tag identifies a native representation.
type Tag string

const (
	Qiskit Tag = "qiskit"
	Cirq   Tag = "cirq"
	QASM   Tag = "qasm"
)

// Tags lists the supported representations in a stable order.
var Tags = []Tag{Qiskit, Cirq, QASM}

// ParseTag resolves a format name. The single-letter aliases A, B and C
// name the builder, composition and assembly forms respectively.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qiskit", "a":
		return Qiskit, nil
	case "cirq", "b":
		return Cirq, nil
	case "qasm", "openqasm", "qasm2", "c":
		return QASM, nil
	}
	return "", qerr.UnsupportedFormat(s)
}

func (t Tag) String() string {
	return string(t)
}

// Adapter parses and emits one native representation.
type Adapter interface {
	Tag() Tag
	Parse(src string) (*circuit.Circuit, error)
	Emit(c *circuit.Circuit) (string, error)
}

// Registry maps tags to adapters.
type Registry struct {
	adapters map[Tag]Adapter
}

// NewRegistry returns a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Tag]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Tag()] = a
	}
	return r
}

// Default returns a registry with all three built-in adapters.
func Default() *Registry {
	return NewRegistry(NewQiskitAdapter(), NewCirqAdapter(), NewQASMAdapter())
}

// Adapter looks up the adapter for tag.
func (r *Registry) Adapter(tag Tag) (Adapter, error) {
	a, ok := r.adapters[tag]
	if !ok {
		return nil, qerr.UnsupportedFormat(string(tag))
	}
	return a, nil
}

// ToIR parses a native circuit. The native value may be a string, a byte
// slice or an io.Reader holding circuit text.
func (r *Registry) ToIR(native any, tag Tag) (*circuit.Circuit, error) {
	a, err := r.Adapter(tag)
	if err != nil {
		return nil, err
	}
	src, err := nativeText(native, tag)
	if err != nil {
		return nil, err
	}
	return a.Parse(src)
}

// FromIR emits c in the representation named by tag.
func (r *Registry) FromIR(c *circuit.Circuit, tag Tag) (string, error) {
	a, err := r.Adapter(tag)
	if err != nil {
		return "", err
	}
	return a.Emit(c)
}

// Convert re-expresses src from one representation in another via the IR.
func (r *Registry) Convert(src string, from, to Tag) (string, error) {
	c, err := r.ToIR(src, from)
	if err != nil {
		return "", err
	}
	return r.FromIR(c, to)
}

func nativeText(native any, tag Tag) (string, error) {
	switch v := native.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return "", qerr.Wrap(errors.Wrap(err, "read circuit"), qerr.KindMalformedCircuit, qerr.StageIngest, "unreadable "+string(tag)+" source")
		}
		return string(b), nil
	}
	return "", qerr.Malformed(qerr.StageIngest, "%s adapter expects circuit text, got %T", tag, native)
}

// lineError reports a parse failure at a 1-based line number.
func lineError(tag Tag, line int, format string, args ...any) error {
	return qerr.Malformed(qerr.StageIngest, "%s line %d: "+format, append([]any{tag, line}, args...)...)
}
