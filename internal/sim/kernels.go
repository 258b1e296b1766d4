package sim

import (
	"math"
	"math/cmplx"

	"deqcore/internal/circuit"
)

type Complex = complex128

// Matrix2 is a single-qubit unitary in row-major order.
type Matrix2 [2][2]Complex

var (
	hFactor = complex(1.0/math.Sqrt2, 0)
	tPhase  = cmplx.Exp(complex(0, math.Pi/4))

	identity = Matrix2{{1, 0}, {0, 1}}
	pauliX   = Matrix2{{0, 1}, {1, 0}}
	pauliY   = Matrix2{{0, -1i}, {1i, 0}}
	pauliZ   = Matrix2{{1, 0}, {0, -1}}
	hadamard = Matrix2{{hFactor, hFactor}, {hFactor, -hFactor}}
	phaseS   = Matrix2{{1, 0}, {0, 1i}}
	phaseSdg = Matrix2{{1, 0}, {0, -1i}}
	phaseT   = Matrix2{{1, 0}, {0, tPhase}}
	phaseTdg = Matrix2{{1, 0}, {0, cmplx.Conj(tPhase)}}
)

// Pauli indexes the non-identity single-qubit Paulis.
type Pauli int

const (
	PauliX Pauli = iota
	PauliY
	PauliZ
)

// Kind returns the gate kind implementing the Pauli.
func (p Pauli) Kind() circuit.GateKind {
	switch p {
	case PauliX:
		return circuit.GateX
	case PauliY:
		return circuit.GateY
	}
	return circuit.GateZ
}

func (p Pauli) matrix() Matrix2 {
	switch p {
	case PauliX:
		return pauliX
	case PauliY:
		return pauliY
	}
	return pauliZ
}

// GateMatrix returns the unitary of a single-qubit gate kind.
func GateMatrix(kind circuit.GateKind, theta float64) (Matrix2, bool) {
	switch kind {
	case circuit.GateI:
		return identity, true
	case circuit.GateX:
		return pauliX, true
	case circuit.GateY:
		return pauliY, true
	case circuit.GateZ:
		return pauliZ, true
	case circuit.GateH:
		return hadamard, true
	case circuit.GateS:
		return phaseS, true
	case circuit.GateSdg:
		return phaseSdg, true
	case circuit.GateT:
		return phaseT, true
	case circuit.GateTdg:
		return phaseTdg, true
	case circuit.GateRX:
		c := complex(math.Cos(theta/2), 0)
		js := complex(0, -math.Sin(theta/2))
		return Matrix2{{c, js}, {js, c}}, true
	case circuit.GateRY:
		c := complex(math.Cos(theta/2), 0)
		s := complex(math.Sin(theta/2), 0)
		return Matrix2{{c, -s}, {s, c}}, true
	case circuit.GateRZ:
		phase := cmplx.Exp(complex(0, theta/2))
		return Matrix2{{cmplx.Conj(phase), 0}, {0, phase}}, true
	}
	return Matrix2{}, false
}

func (m Matrix2) conj() Matrix2 {
	return Matrix2{
		{cmplx.Conj(m[0][0]), cmplx.Conj(m[0][1])},
		{cmplx.Conj(m[1][0]), cmplx.Conj(m[1][1])},
	}
}

// apply1 applies m to the qubit selected by bit.
func apply1(amps []Complex, bit int, m Matrix2) {
	n := len(amps)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			a0, a1 := amps[i], amps[j]
			amps[i] = m[0][0]*a0 + m[0][1]*a1
			amps[j] = m[1][0]*a0 + m[1][1]*a1
		}
	}
}

// applyCX flips the target bit wherever the control bit is set.
func applyCX(amps []Complex, cBit, tBit int) {
	n := len(amps)
	for i := 0; i < n; i++ {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			amps[i], amps[j] = amps[j], amps[i]
		}
	}
}

// applySWAP exchanges two bits.
func applySWAP(amps []Complex, bit1, bit2 int) {
	n := len(amps)
	for i := 0; i < n; i++ {
		if i&bit1 != 0 && i&bit2 == 0 {
			j := (i &^ bit1) | bit2
			amps[i], amps[j] = amps[j], amps[i]
		}
	}
}

// zSign returns the Z eigenvalue of qubit q in basis state i.
func zSign(i, q int) float64 {
	if i&(1<<q) != 0 {
		return -1
	}
	return 1
}
