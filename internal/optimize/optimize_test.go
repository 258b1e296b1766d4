package optimize

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
	"deqcore/internal/sim"
)

// prefixes prepare a few generic input states so that equal outputs imply
// equal unitaries up to global phase.
func prefixes(n int) [][]circuit.Operation {
	var generic, hadamards []circuit.Operation
	for q := range n {
		generic = append(generic,
			circuit.Op(circuit.GateRY, q, 0.3+0.7*float64(q)),
			circuit.Op(circuit.GateRZ, q, 0.1+0.2*float64(q)))
		hadamards = append(hadamards, circuit.Op(circuit.GateH, q))
	}
	if n > 1 {
		generic = append(generic, circuit.CX(0, n-1))
	}
	hadamards = append(hadamards, circuit.Op(circuit.GateT, 0))
	return [][]circuit.Operation{nil, generic, hadamards}
}

func run(n int, prefix, ops []circuit.Operation) *sim.StateVector {
	sv := sim.NewStateVector(n)
	for _, op := range prefix {
		sv.Apply(op)
	}
	for _, op := range ops {
		sv.Apply(op)
	}
	return sv
}

func assertEquivalent(t *testing.T, a, b *circuit.Circuit) {
	t.Helper()
	require.Equal(t, a.NumQubits(), b.NumQubits())
	for _, prefix := range prefixes(a.NumQubits()) {
		x := run(a.NumQubits(), prefix, a.Ops())
		y := run(b.NumQubits(), prefix, b.Ops())
		var overlap complex128
		for i := range x.Amplitudes {
			overlap += cmplx.Conj(x.Amplitudes[i]) * y.Amplitudes[i]
		}
		assert.InDelta(t, 1, cmplx.Abs(overlap), 1e-9, "%s\nvs\n%s", a, b)
	}
}

func TestLocalPassRules(t *testing.T) {
	b := circuit.NewBuilder
	cases := []struct {
		name string
		in   *circuit.Circuit
		want *circuit.Circuit
	}{
		{"hadamard pair", b(1).H(0).H(0).MustBuild(), b(1).MustBuild()},
		{"phase through control", b(2).S(0).CX(0, 1).Sdg(0).MustBuild(), b(2).CX(0, 1).MustBuild()},
		{"x through target", b(2).X(1).CX(0, 1).X(1).MustBuild(), b(2).CX(0, 1).MustBuild()},
		{"t fusion", b(1).T(0).T(0).MustBuild(), b(1).S(0).MustBuild()},
		{"rotation fusion", b(1).RZ(0, 0.3).RZ(0, 0.4).MustBuild(), b(1).RZ(0, 0.7).MustBuild()},
		{"identity", b(1).I(0).X(0).MustBuild(), b(1).X(0).MustBuild()},
		{"zero rotation", b(1).RX(0, 2*math.Pi).Y(0).MustBuild(), b(1).Y(0).MustBuild()},
		{"swap direction", b(2).SWAP(1, 0).MustBuild(), b(2).SWAP(0, 1).MustBuild()},
		{"swap pair", b(2).SWAP(0, 1).SWAP(1, 0).MustBuild(), b(2).MustBuild()},
		{"cx pair", b(2).CX(0, 1).CX(0, 1).MustBuild(), b(2).MustBuild()},
		{"cx reversed pair", b(2).CX(0, 1).CX(1, 0).MustBuild(), b(2).CX(0, 1).CX(1, 0).MustBuild()},
		{"cx direction", b(2).H(0).H(1).CX(0, 1).H(0).H(1).MustBuild(), b(2).CX(1, 0).MustBuild()},
		{"measure blocks", b(1).X(0).Measure(0).X(0).MustBuild(), b(1).X(0).Measure(0).X(0).MustBuild()},
		{"disjoint commute", b(2).T(0).X(1).Tdg(0).MustBuild(), b(2).X(1).MustBuild()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPass{}.Run(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got, 1e-9), "got:\n%s", got)
		})
	}
}

func TestGraphPassRules(t *testing.T) {
	b := circuit.NewBuilder
	cases := []struct {
		name string
		in   *circuit.Circuit
		want *circuit.Circuit
	}{
		{"colour change z", b(1).H(0).RZ(0, 0.5).H(0).MustBuild(), b(1).RX(0, 0.5).MustBuild()},
		{"colour change x", b(1).H(0).RX(0, -0.5).H(0).MustBuild(), b(1).RZ(0, -0.5).MustBuild()},
		{"colour change s", b(1).H(0).S(0).H(0).MustBuild(), b(1).RX(0, math.Pi/2).MustBuild()},
		{"hadamard z", b(1).H(0).Z(0).H(0).MustBuild(), b(1).X(0).MustBuild()},
		{"phase through control", b(2).T(0).CX(0, 1).T(0).MustBuild(), b(2).S(0).CX(0, 1).MustBuild()},
		{"x phase through target", b(2).RX(1, 0.2).CX(0, 1).RX(1, 0.3).MustBuild(), b(2).RX(1, 0.5).CX(0, 1).MustBuild()},
		{"cx pair", b(2).CX(0, 1).CX(0, 1).H(1).MustBuild(), b(2).H(1).MustBuild()},
		{"identity", b(1).RZ(0, 2*math.Pi).I(0).MustBuild(), b(1).MustBuild()},
		{"phase blocked by target", b(2).T(1).CX(0, 1).T(1).MustBuild(), b(2).T(1).CX(0, 1).T(1).MustBuild()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GraphPass{}.Run(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got, 1e-9), "got:\n%s", got)
			assertEquivalent(t, tc.in, got)
		})
	}
}

func randomCircuit(rng *rand.Rand, n, length int) *circuit.Circuit {
	singles := []circuit.GateKind{
		circuit.GateI, circuit.GateX, circuit.GateY, circuit.GateZ, circuit.GateH,
		circuit.GateS, circuit.GateSdg, circuit.GateT, circuit.GateTdg,
	}
	angles := []float64{math.Pi / 2, -math.Pi / 4, 0.3, math.Pi, 1.1}
	b := circuit.NewBuilder(n)
	for range length {
		q := rng.IntN(n)
		switch r := rng.IntN(10); {
		case r < 5:
			b.Add(circuit.Op(singles[rng.IntN(len(singles))], q))
		case r < 7:
			kind := []circuit.GateKind{circuit.GateRX, circuit.GateRY, circuit.GateRZ}[rng.IntN(3)]
			b.Add(circuit.Op(kind, q, angles[rng.IntN(len(angles))]))
		case r < 9:
			t := (q + 1 + rng.IntN(n-1)) % n
			b.CX(q, t)
		default:
			b.SWAP(q, (q+1)%n)
		}
	}
	return b.MustBuild()
}

func TestPassesPreserveSemanticsAndNeverGrow(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 17))
	for _, pass := range []Pass{LocalPass{}, GraphPass{}} {
		for i := range 40 {
			c := randomCircuit(rng, 2+i%3, 10+2*i)
			once, err := pass.Run(c)
			require.NoError(t, err)
			twice, err := pass.Run(once)
			require.NoError(t, err)

			assertEquivalent(t, c, once)
			assert.Equal(t, c.NumQubits(), once.NumQubits())
			assert.LessOrEqual(t, once.Len(), c.Len(), pass.Name())
			assert.LessOrEqual(t, once.Depth(), c.Depth(), pass.Name())
			assert.LessOrEqual(t, twice.Len(), once.Len(), pass.Name())
			assert.LessOrEqual(t, twice.Depth(), once.Depth(), pass.Name())
		}
	}
}

type spyPass struct {
	name  string
	calls int
	grow  bool
}

func (s *spyPass) Name() string { return s.name }

func (s *spyPass) Run(c *circuit.Circuit) (*circuit.Circuit, error) {
	s.calls++
	if s.grow {
		return circuit.MustNew(c.NumQubits()+1, c.Ops()), nil
	}
	return c, nil
}

func TestDispatcherRoutesBySize(t *testing.T) {
	local, graph := &spyPass{name: "local"}, &spyPass{name: "graph"}
	d := NewDispatcher(3, nil)
	d.Local, d.Graph = local, graph

	small := circuit.NewBuilder(2).H(0).CX(0, 1).Measure(0).MustBuild()
	_, report, err := d.Optimize(small)
	require.NoError(t, err)
	assert.Equal(t, PathLocal, report.Path)
	assert.Equal(t, 1, local.calls)
	assert.Zero(t, graph.calls)

	large := circuit.NewBuilder(2).H(0).CX(0, 1).H(1).Measure(0).MustBuild()
	_, report, err = d.Optimize(large)
	require.NoError(t, err)
	assert.Equal(t, PathGraph, report.Path)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 1, graph.calls)
}

func TestDispatcherReport(t *testing.T) {
	c := circuit.NewBuilder(2).H(0).H(0).T(1).CX(0, 1).T(1).Measure(1).MustBuild()
	out, report, err := NewDispatcher(DefaultThreshold, nil).Optimize(c)
	require.NoError(t, err)
	assert.Equal(t, Report{
		OriginalGateCount:  6,
		OptimizedGateCount: out.Len(),
		OriginalDepth:      c.Depth(),
		OptimizedDepth:     out.Depth(),
		Path:               PathLocal,
	}, report)
	assert.Less(t, report.OptimizedGateCount, report.OriginalGateCount)
}

func TestDispatcherRejectsQubitCountChange(t *testing.T) {
	d := NewDispatcher(10, nil)
	d.Local = &spyPass{name: "local", grow: true}

	_, _, err := d.Optimize(circuit.NewBuilder(2).H(0).MustBuild())
	require.Error(t, err)
	assert.True(t, errors.Is(err, qerr.ErrTensorShapeMismatch))
	assert.Equal(t, qerr.StageOptimize, qerr.StageOf(err))
}

func TestGraphStructure(t *testing.T) {
	c := circuit.NewBuilder(3).H(0).CX(0, 1).X(2).CX(1, 2).MustBuild()
	g := FromCircuit(c)
	require.Equal(t, 4, g.Len())
	assert.Equal(t, []int{0}, g.Dependencies(1))
	assert.Equal(t, []int{1, 2}, g.Dependencies(3))

	g.Remove(1)
	assert.Equal(t, []int{2}, g.Dependencies(3))
	next, ok := g.Next(0, 0)
	assert.False(t, ok)
	assert.Nil(t, next)

	out, err := g.ToCircuit()
	require.NoError(t, err)
	assert.True(t, circuit.NewBuilder(3).H(0).X(2).CX(1, 2).MustBuild().Equal(out, 0))
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, math.Pi, normalizeAngle(-math.Pi), 1e-12)
	assert.InDelta(t, 0.5, normalizeAngle(0.5+4*math.Pi), 1e-12)
	assert.InDelta(t, -0.5, normalizeAngle(2*math.Pi-0.5), 1e-12)
}
