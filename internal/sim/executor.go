// Package sim executes circuits under a depolarizing noise model and
// reports Z observables.
//
// Noise model: after every non-measurement operation, each qubit the
// operation touches passes through a single-qubit depolarizing channel of
// strength p. Measurements are noiseless. p = 0 is the ideal evolution from
// |0...0>.
package sim

import (
	"math"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
)

// DefaultMaxQubits bounds dense simulation.
const DefaultMaxQubits = 10

// Observables are the two measured quantities: the expectation of Z on
// qubit 0 and the energy of the Hamiltonian sum_i Z_i.
type Observables struct {
	Expectation float64 `json:"expectation" yaml:"expectation"`
	Energy      float64 `json:"energy" yaml:"energy"`
}

// Scale multiplies both observables by k.
func (o Observables) Scale(k float64) Observables {
	return Observables{Expectation: o.Expectation * k, Energy: o.Energy * k}
}

// Div divides both observables by n.
func (o Observables) Div(n float64) Observables {
	return Observables{Expectation: o.Expectation / n, Energy: o.Energy / n}
}

// Add sums two observable pairs.
func (o Observables) Add(other Observables) Observables {
	return Observables{Expectation: o.Expectation + other.Expectation, Energy: o.Energy + other.Energy}
}

// Executor runs a circuit at a depolarizing strength p.
type Executor interface {
	Name() string
	Execute(c *circuit.Circuit, p float64, opts ...Option) (Observables, error)
}

type runConfig struct {
	exempt  map[int]bool
	seed    uint64
	hasSeed bool
}

// Option adjusts a single execution.
type Option func(*runConfig)

// Exempt skips the noise channel after the operations at the given indices.
func Exempt(indices ...int) Option {
	return func(rc *runConfig) {
		if rc.exempt == nil {
			rc.exempt = make(map[int]bool, len(indices))
		}
		for _, i := range indices {
			rc.exempt[i] = true
		}
	}
}

// WithSeed fixes the random stream of stochastic executors.
func WithSeed(seed uint64) Option {
	return func(rc *runConfig) {
		rc.seed = seed
		rc.hasSeed = true
	}
}

func newRunConfig(opts []Option) runConfig {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	return rc
}

func (rc runConfig) noisy(i int, op circuit.Operation, p float64) bool {
	return p > 0 && op.Kind != circuit.GateMeasure && !rc.exempt[i]
}

func validate(c *circuit.Circuit, p float64, maxQubits int) error {
	if c == nil || c.NumQubits() == 0 {
		return qerr.Invalid(qerr.StageExecute, "circuit has zero qubits")
	}
	if maxQubits > 0 && c.NumQubits() > maxQubits {
		return qerr.Invalid(qerr.StageExecute, "%d qubits exceeds simulation limit of %d", c.NumQubits(), maxQubits)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return qerr.Malformed(qerr.StageExecute, "noise level %g outside [0, 1]", p)
	}
	return nil
}

// DensityExecutor evolves the full density matrix. Results are exact.
type DensityExecutor struct {
	MaxQubits int
}

// NewDensityExecutor returns an exact executor bounded to maxQubits.
func NewDensityExecutor(maxQubits int) *DensityExecutor {
	if maxQubits <= 0 {
		maxQubits = DefaultMaxQubits
	}
	return &DensityExecutor{MaxQubits: maxQubits}
}

func (e *DensityExecutor) Name() string { return "density-matrix" }

func (e *DensityExecutor) Execute(c *circuit.Circuit, p float64, opts ...Option) (Observables, error) {
	if err := validate(c, p, e.MaxQubits); err != nil {
		return Observables{}, err
	}
	rc := newRunConfig(opts)
	rho := NewDensityMatrix(c.NumQubits())
	c.Each(func(i int, op circuit.Operation) {
		rho.Apply(op)
		if rc.noisy(i, op, p) {
			for _, q := range op.Qubits() {
				rho.Depolarize(q, p)
			}
		}
	})
	return rho.Observables(), nil
}
