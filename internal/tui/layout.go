package tui

import (
	"slices"

	"deqcore/internal/circuit"
	"deqcore/internal/classify"
)

// placed is an operation assigned to a diagram column. lo and hi bound the
// wires its vertical connector spans.
type placed struct {
	op     circuit.Operation
	index  int
	col    int
	lo, hi int
}

// grid is the column layout of a circuit: each operation goes in the first
// column where every wire it spans is free.
type grid struct {
	numQubits int
	columns   [][]*placed
}

func layout(c *circuit.Circuit) grid {
	g := grid{numQubits: c.NumQubits()}
	next := make([]int, c.NumQubits())
	c.Each(func(i int, op circuit.Operation) {
		qs := op.Qubits()
		p := &placed{op: op, index: i, lo: slices.Min(qs), hi: slices.Max(qs)}
		// The classical connector of a measurement runs down every wire below.
		reach := p.hi
		if op.Kind == circuit.GateMeasure {
			reach = g.numQubits - 1
		}
		for q := p.lo; q <= reach; q++ {
			p.col = max(p.col, next[q])
		}
		for q := p.lo; q <= reach; q++ {
			next[q] = p.col + 1
		}
		for len(g.columns) <= p.col {
			g.columns = append(g.columns, nil)
		}
		g.columns[p.col] = append(g.columns[p.col], p)
	})
	return g
}

func (g grid) numCols() int { return len(g.columns) }

// measureAt returns the qubit measured in column col, or -1.
func (g grid) measureAt(col int) int {
	if col < 0 || col >= len(g.columns) {
		return -1
	}
	for _, p := range g.columns[col] {
		if p.op.Kind == circuit.GateMeasure {
			return p.op.Targets[0]
		}
	}
	return -1
}

func (g grid) hasMeasure() bool {
	for col := range g.columns {
		if g.measureAt(col) >= 0 {
			return true
		}
	}
	return false
}

// cellInfo describes what occupies a single cell in the diagram.
type cellInfo struct {
	op           *placed
	isControl    bool
	isTarget     bool
	vertAbove    bool
	vertBelow    bool
	passThrough  bool
	measureBelow bool
	nonClifford  bool
}

// cellInfo returns rendering information for the cell at (col, qubit).
func (g grid) cellInfo(col, qubit int) cellInfo {
	var info cellInfo
	if col < 0 || col >= len(g.columns) {
		return info
	}
	for _, p := range g.columns[col] {
		if p.op.Kind == circuit.GateMeasure && qubit > p.op.Targets[0] {
			info.measureBelow = true
		}
		if qubit < p.lo || qubit > p.hi {
			continue
		}
		if p.hi > p.lo {
			info.vertAbove = qubit > p.lo
			info.vertBelow = qubit < p.hi
		}
		if !p.op.Touches(qubit) {
			info.passThrough = true
			continue
		}
		info.op = p
		info.isControl = slices.Contains(p.op.Controls, qubit)
		info.isTarget = p.hi > p.lo && !info.isControl
		class, ok := classify.Classify(p.op)
		info.nonClifford = ok && class == classify.NonClifford
	}
	return info
}
