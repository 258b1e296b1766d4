// Package classify sorts gates into Clifford and non-Clifford classes.
package classify

import "deqcore/internal/circuit"

// Class is the gate class used for strategy selection.
type Class int

const (
	Clifford Class = iota
	NonClifford
)

func (c Class) String() string {
	if c == Clifford {
		return "Clifford"
	}
	return "NonClifford"
}

// Classify returns the class of op. The boolean is false for measurements,
// which belong to neither class. Rotations are NonClifford at every angle,
// including angles that happen to be Clifford.
func Classify(op circuit.Operation) (Class, bool) {
	switch op.Kind {
	case circuit.GateI, circuit.GateX, circuit.GateY, circuit.GateZ,
		circuit.GateH, circuit.GateS, circuit.GateSdg,
		circuit.GateCX, circuit.GateSWAP:
		return Clifford, true
	case circuit.GateT, circuit.GateTdg, circuit.GateRX, circuit.GateRY, circuit.GateRZ:
		return NonClifford, true
	}
	return 0, false
}

// Counts tallies a circuit's operations by class.
type Counts struct {
	Clifford    int `json:"clifford" yaml:"clifford"`
	NonClifford int `json:"non_clifford" yaml:"non_clifford"`
	Measure     int `json:"measure" yaml:"measure"`
}

// Total returns the number of classified operations.
func (c Counts) Total() int {
	return c.Clifford + c.NonClifford
}

// Count visits each operation once.
func Count(c *circuit.Circuit) Counts {
	var counts Counts
	c.Each(func(_ int, op circuit.Operation) {
		class, ok := Classify(op)
		switch {
		case !ok:
			counts.Measure++
		case class == Clifford:
			counts.Clifford++
		default:
			counts.NonClifford++
		}
	})
	return counts
}
