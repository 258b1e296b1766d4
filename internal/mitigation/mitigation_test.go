package mitigation

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"deqcore/internal/circuit"
	"deqcore/internal/classify"
	"deqcore/internal/qerr"
	"deqcore/internal/sim"
	"deqcore/internal/strategy"
)

func density() sim.Executor { return sim.NewDensityExecutor(0) }

func newRand(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed)) }

func TestLinearFit(t *testing.T) {
	a, b, err := linearFit([]float64{1, 2, 3}, []float64{3, 5, 7})
	require.NoError(t, err)
	assert.InDelta(t, 2, a, 1e-12)
	assert.InDelta(t, 1, b, 1e-12)

	_, _, err = linearFit([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, ErrDegenerateFit))
	_, _, err = linearFit([]float64{1}, []float64{1})
	assert.True(t, errors.Is(err, ErrDegenerateFit))
}

func TestRichardsonIsExactForQuadratics(t *testing.T) {
	xs := []float64{1, 1.5, 2}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 1 - x + 0.5*x*x
	}
	est, err := richardson(xs, ys)
	require.NoError(t, err)
	assert.InDelta(t, 1, est, 1e-12)

	_, err = richardson([]float64{1, 1}, []float64{0, 0})
	assert.True(t, errors.Is(err, ErrDegenerateFit))
}

func TestDepolarizingRepresentation(t *testing.T) {
	rep, ok := DepolarizingRepresentation(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, rep.Identity)
	assert.Equal(t, 1.0, rep.Norm())

	for _, p := range []float64{0.001, 0.05, 0.3, 0.7} {
		rep, ok := DepolarizingRepresentation(p)
		require.True(t, ok)
		eps := 4 * p / 3
		assert.InDelta(t, 1, rep.Identity+3*rep.Pauli, 1e-12, "trace preserving")
		assert.InDelta(t, 1/(1-eps), rep.Identity-rep.Pauli, 1e-9, "inverts Pauli shrinkage")
		assert.Less(t, rep.Pauli, 0.0)
	}

	_, ok = DepolarizingRepresentation(0.75)
	assert.False(t, ok)
	_, ok = DepolarizingRepresentation(1)
	assert.False(t, ok)
}

func TestQuasiProbabilityRecoversIdeal(t *testing.T) {
	c := circuit.NewBuilder(1).X(0).T(0).MustBuild()
	p := 0.05

	raw, err := density().Execute(c, p)
	require.NoError(t, err)

	pec := NewQuasiProbability(density(), 2000, 4)
	got, err := pec.Mitigate(c, p)
	require.NoError(t, err)

	assert.InDelta(t, -1, got.Expectation, 0.05)
	assert.InDelta(t, -1, got.Energy, 0.05)
	assert.Less(t, math.Abs(got.Expectation+1), math.Abs(raw.Expectation+1))
}

func TestQuasiProbabilityReductionIsOrderIndependent(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).T(0).CX(0, 1).MustBuild()
	serial, err := NewQuasiProbability(density(), 64, 1).Mitigate(c, 0.02)
	require.NoError(t, err)
	parallel, err := NewQuasiProbability(density(), 64, 8).Mitigate(c, 0.02)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestQuasiProbabilityAtZeroNoiseIsIdeal(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).T(0).CX(0, 1).X(1).MustBuild()
	ideal, err := density().Execute(c, 0)
	require.NoError(t, err)
	got, err := NewQuasiProbability(density(), 10, 2).Mitigate(c, 0)
	require.NoError(t, err)
	assert.InDelta(t, ideal.Expectation, got.Expectation, 1e-12)
	assert.InDelta(t, ideal.Energy, got.Energy, 1e-12)
}

func TestQuasiProbabilityWithoutRepresentations(t *testing.T) {
	pec := NewQuasiProbability(density(), 10, 1)

	_, err := pec.Mitigate(circuit.NewBuilder(1).T(0).MustBuild(), 0.8)
	assert.True(t, errors.Is(err, ErrNoRepresentations))

	_, err = pec.Mitigate(circuit.NewBuilder(1).Measure(0).MustBuild(), 0.1)
	assert.True(t, errors.Is(err, ErrNoRepresentations))
}

func TestSampleMarksInsertedPaulisExempt(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).CX(0, 1).Measure(0).MustBuild()
	rep, ok := DepolarizingRepresentation(0.6)
	require.True(t, ok)

	s, err := sample(c, rep, newRand(3))
	require.NoError(t, err)
	assert.Equal(t, c.Len()+len(s.exempt), s.circuit.Len())
	for _, i := range s.exempt {
		assert.Contains(t, []circuit.GateKind{circuit.GateX, circuit.GateY, circuit.GateZ}, s.circuit.Op(i).Kind)
	}
	assert.Contains(t, []float64{1, -1}, s.sign)
}

func TestExtrapolationLinearIsExactForOneGate(t *testing.T) {
	// <Z> after a noisy X is -(1 - 4 lambda p / 3), linear in lambda.
	c := circuit.NewBuilder(1).X(0).MustBuild()
	got, err := NewExtrapolation(density(), Linear, nil).Mitigate(c, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, -1, got.Expectation, 1e-9)
	assert.InDelta(t, -1, got.Energy, 1e-9)
}

func TestExtrapolationRichardsonIsExactForTwoGates(t *testing.T) {
	// Two noisy gates give a quadratic in lambda.
	c := circuit.NewBuilder(1).X(0).Z(0).MustBuild()
	zne := NewExtrapolation(density(), Richardson, nil)
	assert.Equal(t, []float64{1, 1.5, 2}, zne.ScaleFactors)

	got, err := zne.Mitigate(c, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, -1, got.Expectation, 1e-9)
}

func TestExtrapolationRejectsScaledNoiseAboveOne(t *testing.T) {
	c := circuit.NewBuilder(1).X(0).MustBuild()
	_, err := NewExtrapolation(density(), Linear, nil).Mitigate(c, 0.5)
	assert.Error(t, err)

	_, err = NewExtrapolation(density(), Linear, []float64{1}).Mitigate(c, 0.1)
	assert.True(t, errors.Is(err, ErrDegenerateFit))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Richardson ")
	require.NoError(t, err)
	assert.Equal(t, Richardson, m)
	_, err = ParseMethod("cubic")
	assert.Error(t, err)
}

func TestRegressionIsExactOnOneQubit(t *testing.T) {
	// On one qubit every training circuit shrinks <Z> by the same factor as
	// the target, so the fit is exact.
	c := circuit.NewBuilder(1).X(0).Z(0).MustBuild()
	got, err := NewRegression(density(), 10, 0.5).Mitigate(c, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, -1, got.Expectation, 1e-9)
	assert.InDelta(t, -1, got.Energy, 1e-9)
}

func TestRegressionAtZeroNoiseIsIdeal(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).CX(0, 1).S(1).X(0).MustBuild()
	ideal, err := density().Execute(c, 0)
	require.NoError(t, err)
	got, err := NewRegression(density(), 12, 0.5).Mitigate(c, 0)
	require.NoError(t, err)
	assert.InDelta(t, ideal.Expectation, got.Expectation, 1e-9)
	assert.InDelta(t, ideal.Energy, got.Energy, 1e-9)
}

func TestTrainingSet(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).T(0).CX(0, 1).RX(1, 1.4).Measure(1).MustBuild()
	r := NewRegression(density(), 6, 0.5)

	first, err := r.TrainingSet(c)
	require.NoError(t, err)
	second, err := r.TrainingSet(c)
	require.NoError(t, err)
	require.Len(t, first, 6)

	for i, tr := range first {
		assert.Equal(t, second[i].Circuit.Fingerprint(), tr.Circuit.Fingerprint(), "stable")
		assert.Zero(t, classify.Count(tr.Circuit).NonClifford, "training circuits are Clifford")
		assert.Equal(t, c.NumQubits(), tr.Circuit.NumQubits())

		noisy := 0
		exempt := make(map[int]bool)
		for _, j := range tr.Exempt {
			exempt[j] = true
		}
		tr.Circuit.Each(func(j int, op circuit.Operation) {
			if op.Kind != circuit.GateMeasure && !exempt[j] {
				noisy++
			}
		})
		assert.Equal(t, c.GateCount(), noisy, "noise locations match the target")
	}
}

func TestNearestClifford(t *testing.T) {
	rng := newRand(1)
	cases := []struct {
		op   circuit.Operation
		want []circuit.GateKind
	}{
		{circuit.Op(circuit.GateRZ, 0, math.Pi/2), []circuit.GateKind{circuit.GateS}},
		{circuit.Op(circuit.GateRZ, 0, -math.Pi/2), []circuit.GateKind{circuit.GateSdg}},
		{circuit.Op(circuit.GateRZ, 0, 0.1), []circuit.GateKind{circuit.GateI}},
		{circuit.Op(circuit.GateRX, 0, math.Pi), []circuit.GateKind{circuit.GateX}},
		{circuit.Op(circuit.GateRX, 0, math.Pi/2), []circuit.GateKind{circuit.GateH, circuit.GateS, circuit.GateH}},
		{circuit.Op(circuit.GateRY, 0, 3*math.Pi/2), []circuit.GateKind{circuit.GateH, circuit.GateZ}},
	}
	for _, tc := range cases {
		got := nearestClifford(tc.op, rng)
		kinds := make([]circuit.GateKind, len(got))
		for i, op := range got {
			kinds[i] = op.Kind
		}
		assert.Equal(t, tc.want, kinds, tc.op.String())
	}
}

type stubMitigator struct {
	tag   strategy.Tag
	value sim.Observables
	err   error
	calls int
}

func (s *stubMitigator) Tag() strategy.Tag { return s.tag }

func (s *stubMitigator) Mitigate(*circuit.Circuit, float64) (sim.Observables, error) {
	s.calls++
	return s.value, s.err
}

type fallback struct{ from, to strategy.Tag }

func newEngine(t *testing.T, ms ...Mitigator) (*Engine, *observer.ObservedLogs, *[]fallback) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	var seen []fallback
	e := NewEngine(density(), ms,
		WithLogger(zap.New(core)),
		OnFallback(func(from, to strategy.Tag) { seen = append(seen, fallback{from, to}) }),
	)
	return e, logs, &seen
}

func TestEngineUsesSelectedStrategy(t *testing.T) {
	want := sim.Observables{Expectation: 0.5, Energy: 0.25}
	e, logs, seen := newEngine(t, &stubMitigator{tag: strategy.Regression, value: want})

	out, err := e.Run(circuit.NewBuilder(1).H(0).MustBuild(), 0.1, strategy.Regression)
	require.NoError(t, err)
	assert.Equal(t, want, out.Value)
	assert.Equal(t, strategy.Regression, out.Used)
	assert.Empty(t, out.Fallback)
	assert.Zero(t, logs.Len())
	assert.Empty(t, *seen)
}

func TestEngineFallsBackToExtrapolation(t *testing.T) {
	pec := &stubMitigator{tag: strategy.QuasiProbability, err: errors.Wrap(ErrNoRepresentations, "p=0.8")}
	zne := &stubMitigator{tag: strategy.Extrapolation, value: sim.Observables{Expectation: -0.9}}
	e, logs, seen := newEngine(t, pec, zne)

	out, err := e.Run(circuit.NewBuilder(1).T(0).MustBuild(), 0.1, strategy.QuasiProbability)
	require.NoError(t, err)
	assert.Equal(t, strategy.QuasiProbability, out.Selected)
	assert.Equal(t, strategy.Extrapolation, out.Used)
	assert.Equal(t, -0.9, out.Value.Expectation)
	assert.Contains(t, out.Fallback, "quasi-probability")
	assert.Equal(t, []fallback{{strategy.QuasiProbability, strategy.Extrapolation}}, *seen)

	entries := logs.FilterMessage("MitigationFallbackWarning").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "QuasiProbability", entries[0].ContextMap()["from"])
	assert.Equal(t, "Extrapolation", entries[0].ContextMap()["to"])
}

func TestEngineFallsBackToRaw(t *testing.T) {
	c := circuit.NewBuilder(1).X(0).MustBuild()
	raw, err := density().Execute(c, 0.1)
	require.NoError(t, err)

	cdr := &stubMitigator{tag: strategy.Regression, err: errors.Wrap(ErrDegenerateFit, "fit expectation")}
	zne := &stubMitigator{tag: strategy.Extrapolation}
	e, logs, seen := newEngine(t, cdr, zne)

	out, err := e.Run(c, 0.1, strategy.Regression)
	require.NoError(t, err)
	assert.Equal(t, strategy.Raw, out.Used)
	assert.Equal(t, raw, out.Value)
	assert.Zero(t, zne.calls, "regression failures skip extrapolation")
	assert.Equal(t, []fallback{{strategy.Regression, strategy.Raw}}, *seen)
	assert.Equal(t, 1, logs.Len())
}

func TestEngineChainsFallbacks(t *testing.T) {
	// PEC cannot represent p = 0.8 and extrapolation cannot scale it.
	c := circuit.NewBuilder(1).X(0).T(0).MustBuild()
	raw, err := density().Execute(c, 0.8)
	require.NoError(t, err)

	e, logs, seen := newEngine(t,
		NewQuasiProbability(density(), 10, 2),
		NewExtrapolation(density(), Linear, nil),
	)
	out, err := e.Run(c, 0.8, strategy.QuasiProbability)
	require.NoError(t, err)
	assert.Equal(t, strategy.Raw, out.Used)
	assert.Equal(t, raw, out.Value)
	assert.Equal(t, []fallback{
		{strategy.QuasiProbability, strategy.Extrapolation},
		{strategy.Extrapolation, strategy.Raw},
	}, *seen)
	assert.Equal(t, 2, logs.Len())
}

func TestEngineSurfacesInvalidCircuits(t *testing.T) {
	e, _, seen := newEngine(t, NewExtrapolation(density(), Linear, nil))
	_, err := e.Run(circuit.MustNew(0, nil), 0.1, strategy.Extrapolation)
	assert.True(t, errors.Is(err, qerr.ErrInvalidCircuit))
	assert.Empty(t, *seen)
}

func TestEngineIsIdempotent(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).T(0).CX(0, 1).MustBuild()
	e, _, _ := newEngine(t,
		NewQuasiProbability(sim.NewTrajectoryExecutor(0, 50, 7), 20, 4),
		NewExtrapolation(density(), Linear, nil),
	)
	a, err := e.Run(c, 0.05, strategy.QuasiProbability)
	require.NoError(t, err)
	b, err := e.Run(c, 0.05, strategy.QuasiProbability)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
