package sim

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
)

func executors() []Executor {
	return []Executor{NewDensityExecutor(0), NewTrajectoryExecutor(0, 2000, 1)}
}

func TestIdealBellAndPhase(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).T(0).CX(0, 1).MustBuild()
	for _, ex := range executors() {
		obs, err := ex.Execute(c, 0)
		require.NoError(t, err, ex.Name())
		assert.InDelta(t, 0, obs.Expectation, 1e-12, ex.Name())
		assert.InDelta(t, 0, obs.Energy, 1e-12, ex.Name())
	}
}

func TestEmptyCircuitIsNoiseFree(t *testing.T) {
	c := circuit.MustNew(1, nil)
	for _, ex := range executors() {
		for _, p := range []float64{0, 0.1, 0.5, 1} {
			obs, err := ex.Execute(c, p)
			require.NoError(t, err)
			assert.Equal(t, 1.0, obs.Expectation, "%s p=%g", ex.Name(), p)
			assert.Equal(t, 1.0, obs.Energy)
		}
	}
}

func TestZeroQubitsIsInvalid(t *testing.T) {
	for _, ex := range executors() {
		_, err := ex.Execute(circuit.MustNew(0, nil), 0)
		assert.True(t, errors.Is(err, qerr.ErrInvalidCircuit), ex.Name())
	}
}

func TestRejectsOutOfRangeNoiseAndLargeRegisters(t *testing.T) {
	c := circuit.NewBuilder(1).X(0).MustBuild()
	for _, ex := range executors() {
		_, err := ex.Execute(c, 1.5)
		assert.True(t, errors.Is(err, qerr.ErrMalformedCircuit))
		_, err = ex.Execute(c, -0.1)
		assert.True(t, errors.Is(err, qerr.ErrMalformedCircuit))
	}

	_, err := NewDensityExecutor(2).Execute(circuit.MustNew(3, nil), 0)
	assert.True(t, errors.Is(err, qerr.ErrInvalidCircuit))
}

func TestDepolarizingShrinksZ(t *testing.T) {
	// One noisy X: <Z> = -(1 - 4p/3).
	c := circuit.NewBuilder(1).X(0).MustBuild()
	for _, p := range []float64{0.01, 0.1, 0.3} {
		obs, err := NewDensityExecutor(0).Execute(c, p)
		require.NoError(t, err)
		assert.InDelta(t, -(1 - 4*p/3), obs.Expectation, 1e-12)

		obs, err = NewTrajectoryExecutor(0, 4000, 3).Execute(c, p)
		require.NoError(t, err)
		assert.InDelta(t, -(1 - 4*p/3), obs.Expectation, 0.05)
	}
}

func TestExemptSkipsNoise(t *testing.T) {
	c := circuit.NewBuilder(1).X(0).X(0).MustBuild()
	obs, err := NewDensityExecutor(0).Execute(c, 0.2, Exempt(0, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1, obs.Expectation, 1e-12)

	obs, err = NewDensityExecutor(0).Execute(c, 0.2, Exempt(1))
	require.NoError(t, err)
	assert.InDelta(t, 1-4*0.2/3, obs.Expectation, 1e-12)
}

func TestConvergesToIdeal(t *testing.T) {
	c := circuit.NewBuilder(3).H(0).RY(1, 0.7).CX(0, 2).T(2).CX(1, 0).RZ(0, 0.4).H(2).MustBuild()
	for _, ex := range executors() {
		ideal, err := ex.Execute(c, 0)
		require.NoError(t, err)
		prevGap := math.Inf(1)
		for _, p := range []float64{0.1, 0.01, 0.001, 1e-6} {
			obs, err := ex.Execute(c, p)
			require.NoError(t, err)
			gap := math.Abs(obs.Expectation-ideal.Expectation) + math.Abs(obs.Energy-ideal.Energy)
			if ex.Name() == "density-matrix" {
				assert.LessOrEqual(t, gap, prevGap+1e-12)
			}
			prevGap = gap
		}
		assert.Less(t, prevGap, 1e-2, ex.Name())
	}
}

func TestDeterministicResults(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).CX(0, 1).Measure(0).MustBuild()
	ex := NewTrajectoryExecutor(0, 100, 9)
	a, err := ex.Execute(c, 0.05)
	require.NoError(t, err)
	b, err := ex.Execute(c, 0.05)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMeasurementDoesNotMoveZ(t *testing.T) {
	with := circuit.NewBuilder(2).H(0).CX(0, 1).Measure(0).Measure(1).MustBuild()
	without := circuit.NewBuilder(2).H(0).CX(0, 1).MustBuild()
	for _, ex := range []Executor{NewDensityExecutor(0), NewTrajectoryExecutor(0, 0, 0)} {
		for _, p := range []float64{0, 0.05} {
			a, err := ex.Execute(with, p)
			require.NoError(t, err)
			b, err := ex.Execute(without, p, WithSeed(SeedFor(with, p)))
			require.NoError(t, err)
			assert.InDelta(t, b.Expectation, a.Expectation, 1e-12, "%s p=%v", ex.Name(), p)
			assert.InDelta(t, b.Energy, a.Energy, 1e-12, "%s p=%v", ex.Name(), p)
		}
	}
}

func TestTrajectoryIdealIgnoresTerminalMeasurement(t *testing.T) {
	c := circuit.NewBuilder(1).H(0).Measure(0).MustBuild()
	obs, err := NewTrajectoryExecutor(0, 0, 0).Execute(c, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs.Expectation)

	exact, err := NewDensityExecutor(0).Execute(c, 0)
	require.NoError(t, err)
	assert.InDelta(t, exact.Expectation, obs.Expectation, 1e-12)
}

func TestTerminalMeasures(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).Measure(0).X(0).Measure(1).Measure(0).MustBuild()
	terminal, mid := terminalMeasures(c)
	assert.Equal(t, []bool{false, false, false, true, true}, terminal)
	assert.True(t, mid)

	_, mid = terminalMeasures(circuit.NewBuilder(1).H(0).Measure(0).MustBuild())
	assert.False(t, mid)
}

func TestDensityMatchesStateVector(t *testing.T) {
	c := circuit.NewBuilder(3).
		H(0).S(0).RX(1, 1.1).CX(0, 1).Tdg(1).SWAP(1, 2).RY(2, -0.3).Y(0).Sdg(2).
		MustBuild()

	sv := NewStateVector(3)
	rho := NewDensityMatrix(3)
	c.Each(func(_ int, op circuit.Operation) {
		sv.Apply(op)
		rho.Apply(op)
	})
	assert.InDelta(t, 1, rho.Trace(), 1e-12)
	assert.InDelta(t, sv.Observables().Expectation, rho.Observables().Expectation, 1e-12)
	assert.InDelta(t, sv.Observables().Energy, rho.Observables().Energy, 1e-12)
	for q, pr := range sv.QubitProbabilities() {
		assert.InDelta(t, pr.Prob0-pr.Prob1, sv.ZExpectation(q), 1e-12)
	}
}

func TestGateMatricesAreUnitary(t *testing.T) {
	for _, k := range circuit.Kinds {
		m, ok := GateMatrix(k, 0.37)
		if !ok {
			continue
		}
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				var dot Complex
				for j := 0; j < 2; j++ {
					dot += m[r][j] * m.conj()[c][j]
				}
				want := Complex(0)
				if r == c {
					want = 1
				}
				assert.InDelta(t, real(want), real(dot), 1e-12, string(k))
				assert.InDelta(t, 0, imag(dot), 1e-12, string(k))
			}
		}
	}
}
