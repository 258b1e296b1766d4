package optimize

import (
	"deqcore/internal/circuit"
)

// LocalPass rewrites a circuit by peephole rules applied to a fixpoint:
// identity removal, commutation-aware cancellation of inverse pairs,
// same-axis single-qubit fusion and two-qubit direction normalization.
// Every rule keeps the gate count and depth equal or smaller.
type LocalPass struct{}

func (LocalPass) Name() string { return string(PathLocal) }

func (LocalPass) Run(c *circuit.Circuit) (*circuit.Circuit, error) {
	ops := c.Ops()
	for {
		next, changed := localRound(ops)
		if !changed {
			break
		}
		ops = next
	}
	return c.WithOps(ops)
}

func localRound(ops []circuit.Operation) ([]circuit.Operation, bool) {
	changed := false

	kept := ops[:0:0]
	for _, op := range ops {
		if isIdentity(op) {
			changed = true
			continue
		}
		if op.Kind == circuit.GateSWAP && op.Targets[0] > op.Targets[1] {
			op = circuit.SWAP(op.Targets[1], op.Targets[0])
			changed = true
		}
		kept = append(kept, op)
	}
	ops = kept

	for i := range ops {
		if next, ok := cancelOrFuse(ops, i); ok {
			return next, true
		}
	}
	for i := range ops {
		if next, ok := reverseCX(ops, i); ok {
			return next, true
		}
	}
	return ops, changed
}

// cancelOrFuse looks past operations that commute with ops[i] for a partner
// that cancels it or fuses with it. The result takes the place of ops[i].
func cancelOrFuse(ops []circuit.Operation, i int) ([]circuit.Operation, bool) {
	a := ops[i]
	if a.Kind == circuit.GateMeasure {
		return nil, false
	}
	for j := i + 1; j < len(ops); j++ {
		b := ops[j]
		if a.Disjoint(b) {
			continue
		}
		if cancels(a, b) {
			return without(ops, i, j), true
		}
		if merged, keep, ok := fuse(a, b); ok {
			if !keep {
				return without(ops, i, j), true
			}
			out := without(ops, j)
			out[i] = merged
			return out, true
		}
		if !commutes(a, b) {
			return nil, false
		}
	}
	return nil, false
}

// reverseCX rewrites H(a) H(b) CX(a,b) H(a) H(b) as CX(b,a).
func reverseCX(ops []circuit.Operation, k int) ([]circuit.Operation, bool) {
	cx := ops[k]
	if cx.Kind != circuit.GateCX {
		return nil, false
	}
	c, t := cx.Controls[0], cx.Targets[0]
	idx := make([]int, 0, 4)
	for _, q := range []int{c, t} {
		before, ok := neighbour(ops, k, q, -1)
		if !ok {
			return nil, false
		}
		after, ok := neighbour(ops, k, q, 1)
		if !ok {
			return nil, false
		}
		idx = append(idx, before, after)
	}
	for _, j := range idx {
		if ops[j].Kind != circuit.GateH {
			return nil, false
		}
	}
	out := make([]circuit.Operation, len(ops))
	copy(out, ops)
	out[k] = circuit.CX(t, c)
	return without(out, idx...), true
}

// neighbour returns the index of the closest operation touching q on the
// given side of k.
func neighbour(ops []circuit.Operation, k, q, dir int) (int, bool) {
	for j := k + dir; j >= 0 && j < len(ops); j += dir {
		if ops[j].Touches(q) {
			return j, true
		}
	}
	return 0, false
}

func without(ops []circuit.Operation, drop ...int) []circuit.Operation {
	skip := make(map[int]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	out := make([]circuit.Operation, 0, len(ops)-len(skip))
	for i, op := range ops {
		if !skip[i] {
			out = append(out, op)
		}
	}
	return out
}
