package mitigation

import (
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"deqcore/internal/circuit"
	"deqcore/internal/sim"
	"deqcore/internal/strategy"
)

// QuasiProbability defaults.
const (
	DefaultSamples = 100
	DefaultWorkers = 4
)

// ErrNoRepresentations is returned when no operation of a circuit has a
// valid quasi-probability representation at the requested noise level.
var ErrNoRepresentations = errors.New("no operation has a valid quasi-probability representation")

// Representation is the local inverse of single-qubit depolarizing noise:
// the ideal channel equals Identity*[G] + Pauli*([X G] + [Y G] + [Z G]) for
// each touched qubit.
type Representation struct {
	Identity float64
	Pauli    float64
}

// Norm is the one-norm of the coefficients.
func (r Representation) Norm() float64 {
	return math.Abs(r.Identity) + 3*math.Abs(r.Pauli)
}

// DepolarizingRepresentation returns the representation for strength p. It
// is invalid once the channel is no longer invertible.
func DepolarizingRepresentation(p float64) (Representation, bool) {
	eps := 4 * p / 3
	if eps >= 1 {
		return Representation{}, false
	}
	pauli := -eps / (4 * (1 - eps))
	return Representation{Identity: 1 - 3*pauli, Pauli: pauli}, true
}

// QuasiProbability samples circuits from the local depolarizing
// representation of every non-measurement operation and averages the signed,
// rescaled results.
type QuasiProbability struct {
	Executor sim.Executor
	Samples  int
	Workers  int
}

// NewQuasiProbability returns a sampling mitigator. Workers <= 0 uses
// GOMAXPROCS.
func NewQuasiProbability(executor sim.Executor, samples, workers int) *QuasiProbability {
	if samples <= 0 {
		samples = DefaultSamples
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &QuasiProbability{Executor: executor, Samples: samples, Workers: workers}
}

func (q *QuasiProbability) Tag() strategy.Tag { return strategy.QuasiProbability }

type sampledCircuit struct {
	circuit *circuit.Circuit
	exempt  []int
	sign    float64
}

func (q *QuasiProbability) Mitigate(c *circuit.Circuit, p float64) (sim.Observables, error) {
	rep, ok := DepolarizingRepresentation(p)
	if !ok || c.GateCount() == 0 {
		return sim.Observables{}, errors.Wrapf(ErrNoRepresentations, "p=%g over %d gates", p, c.GateCount())
	}

	gamma := 1.0
	c.Each(func(_ int, op circuit.Operation) {
		if op.Kind != circuit.GateMeasure {
			for range op.Qubits() {
				gamma *= rep.Norm()
			}
		}
	})

	base := sim.SeedFor(c, p)
	results := make([]sim.Observables, q.Samples)

	var eg errgroup.Group
	eg.SetLimit(q.Workers)
	for i := range q.Samples {
		eg.Go(func() error {
			rng := rand.New(rand.NewPCG(base, uint64(i)))
			s, err := sample(c, rep, rng)
			if err != nil {
				return err
			}
			obs, err := q.Executor.Execute(s.circuit, p,
				sim.Exempt(s.exempt...),
				sim.WithSeed(base^uint64(i+1)*0x9e3779b97f4a7c15),
			)
			if err != nil {
				return mitigateErr(err, q.Tag(), "sample %d", i)
			}
			results[i] = obs.Scale(s.sign * gamma)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return sim.Observables{}, err
	}

	var sum sim.Observables
	for _, r := range results {
		sum = sum.Add(r)
	}
	return sum.Div(float64(q.Samples)), nil
}

// sample draws one circuit from the product representation. Inserted Paulis
// follow the operation they correct and are recorded as noise-exempt.
func sample(c *circuit.Circuit, rep Representation, rng *rand.Rand) (sampledCircuit, error) {
	pIdentity := math.Abs(rep.Identity) / rep.Norm()
	s := sampledCircuit{sign: 1}
	ops := make([]circuit.Operation, 0, c.Len())

	c.Each(func(_ int, op circuit.Operation) {
		ops = append(ops, op)
		if op.Kind == circuit.GateMeasure {
			return
		}
		for _, qb := range op.Qubits() {
			if rng.Float64() < pIdentity {
				if rep.Identity < 0 {
					s.sign = -s.sign
				}
				continue
			}
			if rep.Pauli < 0 {
				s.sign = -s.sign
			}
			s.exempt = append(s.exempt, len(ops))
			ops = append(ops, circuit.Op(sim.Pauli(rng.IntN(3)).Kind(), qb))
		}
	})

	sc, err := circuit.New(c.NumQubits(), ops)
	if err != nil {
		return sampledCircuit{}, errors.Wrap(err, "sampled circuit")
	}
	s.circuit = sc
	return s, nil
}
