package circuit

// Builder assembles a circuit gate by gate. Validation is deferred to Build.
type Builder struct {
	numQubits int
	ops       []Operation
}

// NewBuilder starts an empty circuit on n qubits.
func NewBuilder(n int) *Builder {
	return &Builder{numQubits: n}
}

// Add appends an arbitrary operation.
func (b *Builder) Add(op Operation) *Builder {
	b.ops = append(b.ops, op)
	return b
}

func (b *Builder) I(q int) *Builder                 { return b.Add(Op(GateI, q)) }
func (b *Builder) X(q int) *Builder                 { return b.Add(Op(GateX, q)) }
func (b *Builder) Y(q int) *Builder                 { return b.Add(Op(GateY, q)) }
func (b *Builder) Z(q int) *Builder                 { return b.Add(Op(GateZ, q)) }
func (b *Builder) H(q int) *Builder                 { return b.Add(Op(GateH, q)) }
func (b *Builder) S(q int) *Builder                 { return b.Add(Op(GateS, q)) }
func (b *Builder) Sdg(q int) *Builder               { return b.Add(Op(GateSdg, q)) }
func (b *Builder) T(q int) *Builder                 { return b.Add(Op(GateT, q)) }
func (b *Builder) Tdg(q int) *Builder               { return b.Add(Op(GateTdg, q)) }
func (b *Builder) CX(c, t int) *Builder             { return b.Add(CX(c, t)) }
func (b *Builder) SWAP(p, q int) *Builder           { return b.Add(SWAP(p, q)) }
func (b *Builder) RX(q int, theta float64) *Builder { return b.Add(Op(GateRX, q, theta)) }
func (b *Builder) RY(q int, theta float64) *Builder { return b.Add(Op(GateRY, q, theta)) }
func (b *Builder) RZ(q int, theta float64) *Builder { return b.Add(Op(GateRZ, q, theta)) }
func (b *Builder) Measure(q int) *Builder           { return b.Add(Op(GateMeasure, q)) }

// MeasureAll appends a measurement on every qubit.
func (b *Builder) MeasureAll() *Builder {
	for q := 0; q < b.numQubits; q++ {
		b.Measure(q)
	}
	return b
}

// NumQubits returns the register size being built.
func (b *Builder) NumQubits() int {
	return b.numQubits
}

// Build validates and returns the circuit.
func (b *Builder) Build() (*Circuit, error) {
	return New(b.numQubits, b.ops)
}

// MustBuild panics on invalid input. Intended for fixtures.
func (b *Builder) MustBuild() *Circuit {
	return MustNew(b.numQubits, b.ops)
}
