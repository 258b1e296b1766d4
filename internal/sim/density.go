package sim

import "deqcore/internal/circuit"

// DensityMatrix is a mixed state stored as a flat vector. Entry
// rho[row][col] lives at index row | col<<NumQubits, so a unitary acts as U
// on the low bits and conj(U) on the high bits.
type DensityMatrix struct {
	Elements  []Complex
	NumQubits int
}

// NewDensityMatrix returns |0...0><0...0|.
func NewDensityMatrix(numQubits int) *DensityMatrix {
	el := make([]Complex, 1<<(2*numQubits))
	el[0] = 1
	return &DensityMatrix{Elements: el, NumQubits: numQubits}
}

func (d *DensityMatrix) rowBit(q int) int { return 1 << q }
func (d *DensityMatrix) colBit(q int) int { return 1 << (q + d.NumQubits) }

// Apply applies a unitary operation. A measurement is applied as a
// non-selective Z measurement, which removes coherences on that qubit.
func (d *DensityMatrix) Apply(op circuit.Operation) {
	switch op.Kind {
	case circuit.GateMeasure:
		d.Dephase(op.Targets[0])
	case circuit.GateCX:
		c, t := op.Controls[0], op.Targets[0]
		applyCX(d.Elements, d.rowBit(c), d.rowBit(t))
		applyCX(d.Elements, d.colBit(c), d.colBit(t))
	case circuit.GateSWAP:
		a, b := op.Targets[0], op.Targets[1]
		applySWAP(d.Elements, d.rowBit(a), d.rowBit(b))
		applySWAP(d.Elements, d.colBit(a), d.colBit(b))
	default:
		m, _ := GateMatrix(op.Kind, op.Angle())
		q := op.Targets[0]
		apply1(d.Elements, d.rowBit(q), m)
		apply1(d.Elements, d.colBit(q), m.conj())
	}
}

// Depolarize applies rho -> (1-p) rho + p/3 (X rho X + Y rho Y + Z rho Z)
// on qubit q.
func (d *DensityMatrix) Depolarize(q int, p float64) {
	if p == 0 {
		return
	}
	rb, cb := d.rowBit(q), d.colBit(q)
	keep := complex(1-2*p/3, 0)
	flip := complex(2*p/3, 0)
	coh := complex(1-4*p/3, 0)
	for i := range d.Elements {
		if i&rb != 0 || i&cb != 0 {
			continue
		}
		a, b, c, e := i, i|cb, i|rb, i|rb|cb
		p00, p11 := d.Elements[a], d.Elements[e]
		d.Elements[a] = keep*p00 + flip*p11
		d.Elements[e] = keep*p11 + flip*p00
		d.Elements[b] *= coh
		d.Elements[c] *= coh
	}
}

// Dephase zeroes the off-diagonal blocks of qubit q.
func (d *DensityMatrix) Dephase(q int) {
	rb, cb := d.rowBit(q), d.colBit(q)
	for i := range d.Elements {
		if (i&rb != 0) != (i&cb != 0) {
			d.Elements[i] = 0
		}
	}
}

// Trace returns the real part of tr(rho).
func (d *DensityMatrix) Trace() float64 {
	dim := 1 << d.NumQubits
	t := 0.0
	for i := 0; i < dim; i++ {
		t += real(d.Elements[i|i<<d.NumQubits])
	}
	return t
}

// Observables returns <Z_0> and <sum_i Z_i>.
func (d *DensityMatrix) Observables() Observables {
	var obs Observables
	dim := 1 << d.NumQubits
	for i := 0; i < dim; i++ {
		prob := real(d.Elements[i|i<<d.NumQubits])
		obs.Expectation += zSign(i, 0) * prob
		for q := range d.NumQubits {
			obs.Energy += zSign(i, q) * prob
		}
	}
	return obs
}
