// Package circuit holds the format-independent circuit representation.
//
// A Circuit is immutable once constructed. Every transformation builds a new
// Circuit through New, so qubit bounds and gate arity are checked exactly once
// per value.
package circuit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"deqcore/internal/qerr"
)

// Circuit is an ordered list of operations over a fixed qubit register.
type Circuit struct {
	numQubits int
	ops       []Operation
}

// MaxRegister is the largest qubit register a circuit may declare.
const MaxRegister = 1024

// New validates ops against numQubits and returns the circuit.
func New(numQubits int, ops []Operation) (*Circuit, error) {
	if numQubits < 0 {
		return nil, qerr.Invalid(qerr.StageIngest, "negative qubit count %d", numQubits)
	}
	if numQubits > MaxRegister {
		return nil, qerr.Invalid(qerr.StageIngest, "qubit count %d exceeds %d", numQubits, MaxRegister)
	}
	owned := make([]Operation, len(ops))
	for i, op := range ops {
		if err := validateOp(numQubits, op); err != nil {
			return nil, qerr.Invalid(qerr.StageIngest, "operation %d (%s): %s", i, op.Kind, err)
		}
		owned[i] = op.Clone()
	}
	return &Circuit{numQubits: numQubits, ops: owned}, nil
}

// MustNew is New for fixtures known to be valid.
func MustNew(numQubits int, ops []Operation) *Circuit {
	c, err := New(numQubits, ops)
	if err != nil {
		panic(err)
	}
	return c
}

func validateOp(numQubits int, op Operation) error {
	a, ok := arities[op.Kind]
	if !ok {
		return fmt.Errorf("unknown gate kind %q", op.Kind)
	}
	if len(op.Controls) != a.controls || len(op.Targets) != a.targets {
		return fmt.Errorf("expected %d control(s) and %d target(s), got %d and %d",
			a.controls, a.targets, len(op.Controls), len(op.Targets))
	}
	if len(op.Params) != a.params {
		return fmt.Errorf("expected %d parameter(s), got %d", a.params, len(op.Params))
	}
	seen := make(map[int]bool, 2)
	for _, q := range op.Qubits() {
		if q < 0 || q >= numQubits {
			return fmt.Errorf("qubit %d out of range for %d-qubit register", q, numQubits)
		}
		if seen[q] {
			return fmt.Errorf("qubit %d used twice", q)
		}
		seen[q] = true
	}
	return nil
}

// NumQubits returns the register size.
func (c *Circuit) NumQubits() int {
	return c.numQubits
}

// Len returns the number of operations, measurements included.
func (c *Circuit) Len() int {
	return len(c.ops)
}

// Op returns a copy of operation i.
func (c *Circuit) Op(i int) Operation {
	return c.ops[i].Clone()
}

// Ops returns a copy of the operation list.
func (c *Circuit) Ops() []Operation {
	out := make([]Operation, len(c.ops))
	for i, op := range c.ops {
		out[i] = op.Clone()
	}
	return out
}

// Each visits every operation once in order without copying.
func (c *Circuit) Each(fn func(i int, op Operation)) {
	for i, op := range c.ops {
		fn(i, op)
	}
}

// WithOps returns a new validated circuit on the same register.
func (c *Circuit) WithOps(ops []Operation) (*Circuit, error) {
	return New(c.numQubits, ops)
}

// GateCount counts non-measure operations.
func (c *Circuit) GateCount() int {
	n := 0
	for _, op := range c.ops {
		if op.Kind != GateMeasure {
			n++
		}
	}
	return n
}

// HasMeasure reports whether any operation is a measurement.
func (c *Circuit) HasMeasure() bool {
	for _, op := range c.ops {
		if op.Kind == GateMeasure {
			return true
		}
	}
	return false
}

// Depth returns the number of layers when every operation is scheduled as
// early as its qubits allow.
func (c *Circuit) Depth() int {
	level := make([]int, c.numQubits)
	depth := 0
	for _, op := range c.ops {
		layer := 0
		for _, q := range op.Qubits() {
			layer = max(layer, level[q])
		}
		layer++
		for _, q := range op.Qubits() {
			level[q] = layer
		}
		depth = max(depth, layer)
	}
	return depth
}

// Canonical returns a stable text form used for hashing and equality.
func (c *Circuit) Canonical() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "qubits %d\n", c.numQubits)
	for _, op := range c.ops {
		sb.WriteString(op.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Fingerprint returns the hex SHA-256 of the canonical form.
func (c *Circuit) Fingerprint() string {
	sum := sha256.Sum256([]byte(c.Canonical()))
	return hex.EncodeToString(sum[:])
}

// Equal compares register size and operations, allowing tol on parameters.
func (c *Circuit) Equal(other *Circuit, tol float64) bool {
	if c.numQubits != other.numQubits || len(c.ops) != len(other.ops) {
		return false
	}
	for i := range c.ops {
		if !c.ops[i].Equal(other.ops[i], tol) {
			return false
		}
	}
	return true
}

func (c *Circuit) String() string {
	return c.Canonical()
}
