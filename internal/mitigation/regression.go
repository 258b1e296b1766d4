package mitigation

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"deqcore/internal/circuit"
	"deqcore/internal/sim"
	"deqcore/internal/strategy"
)

// Regression defaults.
const (
	DefaultTrainingCircuits = 10
	DefaultReplaceFraction  = 0.5
)

var singleCliffords = []circuit.GateKind{
	circuit.GateI, circuit.GateX, circuit.GateY, circuit.GateZ,
	circuit.GateH, circuit.GateS, circuit.GateSdg,
}

// Regression learns a linear noisy-to-ideal map on Clifford training circuits
// derived from the target and applies it to the target's noisy result.
type Regression struct {
	Executor         sim.Executor
	TrainingCircuits int
	ReplaceFraction  float64
}

// NewRegression returns a regression mitigator.
func NewRegression(executor sim.Executor, trainingCircuits int, replaceFraction float64) *Regression {
	if trainingCircuits <= 0 {
		trainingCircuits = DefaultTrainingCircuits
	}
	if replaceFraction < 0 || replaceFraction > 1 {
		replaceFraction = DefaultReplaceFraction
	}
	return &Regression{Executor: executor, TrainingCircuits: trainingCircuits, ReplaceFraction: replaceFraction}
}

func (r *Regression) Tag() strategy.Tag { return strategy.Regression }

func (r *Regression) Mitigate(c *circuit.Circuit, p float64) (sim.Observables, error) {
	target, err := r.Executor.Execute(c, p)
	if err != nil {
		return sim.Observables{}, mitigateErr(err, r.Tag(), "execute target")
	}

	training, err := r.TrainingSet(c)
	if err != nil {
		return sim.Observables{}, mitigateErr(err, r.Tag(), "build training set")
	}

	n := len(training)
	noisyExp, idealExp := make([]float64, n), make([]float64, n)
	noisyEnergy, idealEnergy := make([]float64, n), make([]float64, n)
	for i, t := range training {
		ideal, err := r.Executor.Execute(t.Circuit, 0)
		if err != nil {
			return sim.Observables{}, mitigateErr(err, r.Tag(), "training circuit %d ideal", i)
		}
		noisy, err := r.Executor.Execute(t.Circuit, p, sim.Exempt(t.Exempt...))
		if err != nil {
			return sim.Observables{}, mitigateErr(err, r.Tag(), "training circuit %d noisy", i)
		}
		noisyExp[i], idealExp[i] = noisy.Expectation, ideal.Expectation
		noisyEnergy[i], idealEnergy[i] = noisy.Energy, ideal.Energy
	}

	a, b, err := linearFit(noisyExp, idealExp)
	if err != nil {
		return sim.Observables{}, mitigateErr(err, r.Tag(), "fit expectation")
	}
	ae, be, err := linearFit(noisyEnergy, idealEnergy)
	if err != nil {
		return sim.Observables{}, mitigateErr(err, r.Tag(), "fit energy")
	}
	return sim.Observables{
		Expectation: a*target.Expectation + b,
		Energy:      ae*target.Energy + be,
	}, nil
}

// Training is one Clifford training circuit. Exempt lists the operations
// that run without noise: the basis-state preparation and all but the last
// gate of a multi-gate substitution, so every training circuit carries noise
// at the same locations as the target.
type Training struct {
	Circuit *circuit.Circuit
	Exempt  []int
}

// TrainingSet builds the Clifford training circuits for c. The set depends
// only on the circuit content and the regression settings.
func (r *Regression) TrainingSet(c *circuit.Circuit) ([]Training, error) {
	seed := sim.SeedFor(c, 0)
	rng := rand.New(rand.NewPCG(seed, uint64(r.TrainingCircuits)))

	out := make([]Training, 0, r.TrainingCircuits)
	for range r.TrainingCircuits {
		var (
			ops    []circuit.Operation
			exempt []int
		)
		for q := range c.NumQubits() {
			if rng.IntN(2) == 1 {
				exempt = append(exempt, len(ops))
				ops = append(ops, circuit.Op(circuit.GateX, q))
			}
		}
		c.Each(func(_ int, op circuit.Operation) {
			sub := r.substitute(op, rng)
			for range len(sub) - 1 {
				exempt = append(exempt, len(ops))
				ops = append(ops, sub[0])
				sub = sub[1:]
			}
			ops = append(ops, sub[0])
		})
		t, err := circuit.New(c.NumQubits(), ops)
		if err != nil {
			return nil, errors.Wrap(err, "training circuit")
		}
		out = append(out, Training{Circuit: t, Exempt: exempt})
	}
	return out, nil
}

func (r *Regression) substitute(op circuit.Operation, rng *rand.Rand) []circuit.Operation {
	switch op.Kind {
	case circuit.GateMeasure, circuit.GateCX, circuit.GateSWAP:
		return []circuit.Operation{op}
	case circuit.GateT, circuit.GateTdg, circuit.GateRX, circuit.GateRY, circuit.GateRZ:
		return nearestClifford(op, rng)
	}
	if rng.Float64() < r.ReplaceFraction {
		return []circuit.Operation{circuit.Op(singleCliffords[rng.IntN(len(singleCliffords))], op.Targets[0])}
	}
	return []circuit.Operation{op}
}

// nearestClifford replaces a non-Clifford gate with a Clifford sequence.
// Rotations snap to the closest multiple of pi/2; T and Tdg round randomly
// down to I or up to S and Sdg.
func nearestClifford(op circuit.Operation, rng *rand.Rand) []circuit.Operation {
	q := op.Targets[0]
	seq := func(kinds ...circuit.GateKind) []circuit.Operation {
		ops := make([]circuit.Operation, len(kinds))
		for i, k := range kinds {
			ops[i] = circuit.Op(k, q)
		}
		return ops
	}

	switch op.Kind {
	case circuit.GateT:
		if rng.IntN(2) == 0 {
			return seq(circuit.GateI)
		}
		return seq(circuit.GateS)
	case circuit.GateTdg:
		if rng.IntN(2) == 0 {
			return seq(circuit.GateI)
		}
		return seq(circuit.GateSdg)
	}

	k := int(math.Round(op.Angle()/(math.Pi/2))) % 4
	if k < 0 {
		k += 4
	}
	switch op.Kind {
	case circuit.GateRZ:
		return seq([]circuit.GateKind{circuit.GateI, circuit.GateS, circuit.GateZ, circuit.GateSdg}[k])
	case circuit.GateRX:
		switch k {
		case 1:
			return seq(circuit.GateH, circuit.GateS, circuit.GateH)
		case 2:
			return seq(circuit.GateX)
		case 3:
			return seq(circuit.GateH, circuit.GateSdg, circuit.GateH)
		}
	case circuit.GateRY:
		switch k {
		case 1:
			return seq(circuit.GateZ, circuit.GateH)
		case 2:
			return seq(circuit.GateY)
		case 3:
			return seq(circuit.GateH, circuit.GateZ)
		}
	}
	return seq(circuit.GateI)
}
