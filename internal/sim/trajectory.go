package sim

import (
	"math"
	"math/rand/v2"
	"strconv"

	"deqcore/internal/circuit"
)

// DefaultTrajectories is the number of sampled noise realizations.
const DefaultTrajectories = 400

// TrajectoryExecutor averages state-vector runs over randomly sampled Pauli
// errors. Each trajectory contributes its exact Z expectations, so the only
// sampling error comes from the error locations. The random stream is seeded
// from the circuit fingerprint and p, so repeated calls return identical
// results.
type TrajectoryExecutor struct {
	MaxQubits    int
	Trajectories int
	Seed         uint64
}

// NewTrajectoryExecutor returns a sampling executor.
func NewTrajectoryExecutor(maxQubits, trajectories int, seed uint64) *TrajectoryExecutor {
	if maxQubits <= 0 {
		maxQubits = DefaultMaxQubits
	}
	if trajectories <= 0 {
		trajectories = DefaultTrajectories
	}
	return &TrajectoryExecutor{MaxQubits: maxQubits, Trajectories: trajectories, Seed: seed}
}

func (e *TrajectoryExecutor) Name() string { return "trajectory" }

func (e *TrajectoryExecutor) Execute(c *circuit.Circuit, p float64, opts ...Option) (Observables, error) {
	if err := validate(c, p, e.MaxQubits); err != nil {
		return Observables{}, err
	}
	rc := newRunConfig(opts)

	seed := rc.seed
	if !rc.hasSeed {
		seed = SeedFor(c, p) ^ e.Seed
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	terminal, mid := terminalMeasures(c)
	runs := e.Trajectories
	if p == 0 && !mid {
		runs = 1
	}

	var sum Observables
	for range runs {
		sum = sum.Add(e.trajectory(c, p, rc, rng, terminal))
	}
	return sum.Div(float64(runs)), nil
}

func (e *TrajectoryExecutor) trajectory(c *circuit.Circuit, p float64, rc runConfig, rng *rand.Rand, terminal []bool) Observables {
	state := NewStateVector(c.NumQubits())
	c.Each(func(i int, op circuit.Operation) {
		if op.Kind == circuit.GateMeasure {
			if !terminal[i] {
				state.Measure(op.Targets[0], rng)
			}
			return
		}
		state.Apply(op)
		if !rc.noisy(i, op, p) {
			return
		}
		for _, q := range op.Qubits() {
			if rng.Float64() < p {
				state.ApplyPauli(q, Pauli(rng.IntN(3)))
			}
		}
	})
	return state.Observables()
}

// terminalMeasures marks measurements that no later gate acts on. Z
// observables commute with those, so they need no collapse. mid reports
// whether any measurement is followed by a gate on its qubit.
func terminalMeasures(c *circuit.Circuit) (terminal []bool, mid bool) {
	ops := c.Ops()
	terminal = make([]bool, len(ops))
	touched := make(map[int]bool)
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.Kind == circuit.GateMeasure {
			terminal[i] = !touched[op.Targets[0]]
			mid = mid || !terminal[i]
			continue
		}
		for _, q := range op.Qubits() {
			touched[q] = true
		}
	}
	return terminal, mid
}

// SeedFor derives a stable seed from a circuit's content and a noise level.
func SeedFor(c *circuit.Circuit, p float64) uint64 {
	fp := c.Fingerprint()
	h, _ := strconv.ParseUint(fp[:16], 16, 64)
	return h ^ math.Float64bits(p)
}
