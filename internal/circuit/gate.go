package circuit

import (
	"fmt"
	"strconv"
	"strings"
)

// GateKind names an operation in the supported gate vocabulary.
type GateKind string

const (
	GateI       GateKind = "I"
	GateX       GateKind = "X"
	GateY       GateKind = "Y"
	GateZ       GateKind = "Z"
	GateH       GateKind = "H"
	GateS       GateKind = "S"
	GateSdg     GateKind = "SDG"
	GateT       GateKind = "T"
	GateTdg     GateKind = "TDG"
	GateCX      GateKind = "CX"
	GateSWAP    GateKind = "SWAP"
	GateRX      GateKind = "RX"
	GateRY      GateKind = "RY"
	GateRZ      GateKind = "RZ"
	GateMeasure GateKind = "MEASURE"
)

// Kinds lists the vocabulary in a stable order.
var Kinds = []GateKind{
	GateI, GateX, GateY, GateZ, GateH, GateS, GateSdg, GateT, GateTdg,
	GateCX, GateSWAP, GateRX, GateRY, GateRZ, GateMeasure,
}

// ParseKind resolves a gate name case-insensitively, including the common
// aliases "id", "cnot", "s_dag" and "t_dag".
func ParseKind(name string) (GateKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "I", "ID":
		return GateI, true
	case "X":
		return GateX, true
	case "Y":
		return GateY, true
	case "Z":
		return GateZ, true
	case "H":
		return GateH, true
	case "S":
		return GateS, true
	case "SDG", "S_DAG":
		return GateSdg, true
	case "T":
		return GateT, true
	case "TDG", "T_DAG":
		return GateTdg, true
	case "CX", "CNOT":
		return GateCX, true
	case "SWAP":
		return GateSWAP, true
	case "RX":
		return GateRX, true
	case "RY":
		return GateRY, true
	case "RZ":
		return GateRZ, true
	case "MEASURE":
		return GateMeasure, true
	}
	return "", false
}

// Valid reports whether k is part of the vocabulary.
func (k GateKind) Valid() bool {
	_, ok := arities[k]
	return ok
}

type arity struct {
	controls int
	targets  int
	params   int
}

var arities = map[GateKind]arity{
	GateI:       {0, 1, 0},
	GateX:       {0, 1, 0},
	GateY:       {0, 1, 0},
	GateZ:       {0, 1, 0},
	GateH:       {0, 1, 0},
	GateS:       {0, 1, 0},
	GateSdg:     {0, 1, 0},
	GateT:       {0, 1, 0},
	GateTdg:     {0, 1, 0},
	GateCX:      {1, 1, 0},
	GateSWAP:    {0, 2, 0},
	GateRX:      {0, 1, 1},
	GateRY:      {0, 1, 1},
	GateRZ:      {0, 1, 1},
	GateMeasure: {0, 1, 0},
}

// NumQubits returns how many qubits an operation of this kind touches.
func (k GateKind) NumQubits() int {
	a := arities[k]
	return a.controls + a.targets
}

// IsParameterized reports whether the kind takes a rotation angle.
func (k GateKind) IsParameterized() bool {
	return arities[k].params > 0
}

// IsDiagonal reports whether the gate is diagonal in the computational basis.
func (k GateKind) IsDiagonal() bool {
	switch k {
	case GateI, GateZ, GateS, GateSdg, GateT, GateTdg, GateRZ:
		return true
	}
	return false
}

// IsXAxis reports whether the gate is a function of Pauli X only.
func (k GateKind) IsXAxis() bool {
	return k == GateX || k == GateRX
}

// Inverse returns the kind of the adjoint gate. Rotations invert by negating
// their angle and keep their kind.
func (k GateKind) Inverse() (GateKind, bool) {
	switch k {
	case GateI, GateX, GateY, GateZ, GateH, GateCX, GateSWAP, GateRX, GateRY, GateRZ:
		return k, true
	case GateS:
		return GateSdg, true
	case GateSdg:
		return GateS, true
	case GateT:
		return GateTdg, true
	case GateTdg:
		return GateT, true
	}
	return "", false
}

// Operation is a single gate application. Controls are listed before targets
// in Qubits.
type Operation struct {
	Kind     GateKind
	Targets  []int
	Controls []int
	Params   []float64
}

// Op builds a single-qubit operation.
func Op(kind GateKind, target int, params ...float64) Operation {
	o := Operation{Kind: kind, Targets: []int{target}}
	if len(params) > 0 {
		o.Params = append([]float64(nil), params...)
	}
	return o
}

// CX builds a controlled-X operation.
func CX(control, target int) Operation {
	return Operation{Kind: GateCX, Controls: []int{control}, Targets: []int{target}}
}

// SWAP builds a swap operation.
func SWAP(a, b int) Operation {
	return Operation{Kind: GateSWAP, Targets: []int{a, b}}
}

// Qubits returns every qubit the operation references, controls first.
func (o Operation) Qubits() []int {
	qs := make([]int, 0, len(o.Controls)+len(o.Targets))
	qs = append(qs, o.Controls...)
	return append(qs, o.Targets...)
}

// Touches reports whether the operation references qubit q.
func (o Operation) Touches(q int) bool {
	for _, x := range o.Controls {
		if x == q {
			return true
		}
	}
	for _, x := range o.Targets {
		if x == q {
			return true
		}
	}
	return false
}

// Disjoint reports whether o and other share no qubit.
func (o Operation) Disjoint(other Operation) bool {
	for _, q := range other.Qubits() {
		if o.Touches(q) {
			return false
		}
	}
	return true
}

// Angle returns the first parameter, or 0 for unparameterized kinds.
func (o Operation) Angle() float64 {
	if len(o.Params) == 0 {
		return 0
	}
	return o.Params[0]
}

// Clone returns a deep copy.
func (o Operation) Clone() Operation {
	c := Operation{Kind: o.Kind}
	if o.Targets != nil {
		c.Targets = append([]int(nil), o.Targets...)
	}
	if o.Controls != nil {
		c.Controls = append([]int(nil), o.Controls...)
	}
	if o.Params != nil {
		c.Params = append([]float64(nil), o.Params...)
	}
	return c
}

// Inverse returns the adjoint operation.
func (o Operation) Inverse() (Operation, bool) {
	k, ok := o.Kind.Inverse()
	if !ok {
		return Operation{}, false
	}
	inv := o.Clone()
	inv.Kind = k
	for i := range inv.Params {
		inv.Params[i] = -inv.Params[i]
	}
	return inv, true
}

// SameWires reports whether both operations act on the same qubits in the
// same roles.
func (o Operation) SameWires(other Operation) bool {
	return equalInts(o.Targets, other.Targets) && equalInts(o.Controls, other.Controls)
}

// Equal compares two operations, allowing tol on parameters.
func (o Operation) Equal(other Operation, tol float64) bool {
	if o.Kind != other.Kind || !o.SameWires(other) || len(o.Params) != len(other.Params) {
		return false
	}
	for i := range o.Params {
		d := o.Params[i] - other.Params[i]
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}

// String renders the canonical form, e.g. "CX q0,q1" or "RZ(0.5) q2".
// Parameters use the shortest exact decimal form.
func (o Operation) String() string {
	var sb strings.Builder
	sb.WriteString(string(o.Kind))
	if len(o.Params) > 0 {
		sb.WriteByte('(')
		for i, p := range o.Params {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
		}
		sb.WriteByte(')')
	}
	sb.WriteByte(' ')
	for i, q := range o.Qubits() {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "q%d", q)
	}
	return sb.String()
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
