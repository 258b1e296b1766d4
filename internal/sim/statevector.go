package sim

import (
	"math"
	"math/rand/v2"

	"deqcore/internal/circuit"
)

// StateVector is a pure state over NumQubits qubits. Qubit 0 is the least
// significant bit of the basis index.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

// NewStateVector returns |0...0>.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]Complex, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// Apply applies a unitary operation. Measurements are ignored; use Measure.
func (s *StateVector) Apply(op circuit.Operation) {
	switch op.Kind {
	case circuit.GateMeasure:
	case circuit.GateCX:
		applyCX(s.Amplitudes, 1<<op.Controls[0], 1<<op.Targets[0])
	case circuit.GateSWAP:
		applySWAP(s.Amplitudes, 1<<op.Targets[0], 1<<op.Targets[1])
	default:
		m, _ := GateMatrix(op.Kind, op.Angle())
		apply1(s.Amplitudes, 1<<op.Targets[0], m)
	}
}

// ApplyPauli applies a Pauli error to qubit q.
func (s *StateVector) ApplyPauli(q int, p Pauli) {
	apply1(s.Amplitudes, 1<<q, p.matrix())
}

// Measure samples qubit q in the Z basis and collapses the state. It
// returns the observed bit.
func (s *StateVector) Measure(q int, rng *rand.Rand) int {
	bit := 1 << q
	prob0 := 0.0
	for i, a := range s.Amplitudes {
		if i&bit == 0 {
			prob0 += real(a)*real(a) + imag(a)*imag(a)
		}
	}

	outcome := 0
	if rng.Float64() >= prob0 {
		outcome = 1
	}
	keep := prob0
	if outcome == 1 {
		keep = 1 - prob0
	}
	norm := complex(1/math.Sqrt(max(keep, 1e-300)), 0)
	for i := range s.Amplitudes {
		if (i&bit != 0) == (outcome == 1) {
			s.Amplitudes[i] *= norm
		} else {
			s.Amplitudes[i] = 0
		}
	}
	return outcome
}

// ZExpectation returns <Z_q>.
func (s *StateVector) ZExpectation(q int) float64 {
	e := 0.0
	for i, a := range s.Amplitudes {
		e += zSign(i, q) * (real(a)*real(a) + imag(a)*imag(a))
	}
	return e
}

// Observables returns <Z_0> and <sum_i Z_i>.
func (s *StateVector) Observables() Observables {
	var obs Observables
	for i, a := range s.Amplitudes {
		prob := real(a)*real(a) + imag(a)*imag(a)
		obs.Expectation += zSign(i, 0) * prob
		for q := range s.NumQubits {
			obs.Energy += zSign(i, q) * prob
		}
	}
	return obs
}

// QubitProbability holds the marginal probabilities of a single qubit.
type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

// QubitProbabilities returns per-qubit marginals.
func (s *StateVector) QubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, s.NumQubits)
	for i, a := range s.Amplitudes {
		prob := real(a)*real(a) + imag(a)*imag(a)
		for q := range s.NumQubits {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += prob
			} else {
				probs[q].Prob0 += prob
			}
		}
	}
	return probs
}
