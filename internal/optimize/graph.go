package optimize

import (
	"slices"

	"deqcore/internal/circuit"
)

// boundary marks a wire end in Node links.
const boundary = -1

// Node is one operation in a Graph. Prev and Next hold, per qubit, the ID of
// the neighbouring node on that wire or boundary.
type Node struct {
	ID   int
	Op   circuit.Operation
	Prev map[int]int
	Next map[int]int
}

// Graph is a circuit as a directed acyclic wire graph. Node IDs follow the
// original operation order and rewrites never move a node past a later one,
// so ascending IDs are always a valid topological order.
type Graph struct {
	NumQubits int
	Nodes     map[int]*Node
	first     []int
	last      []int
	nextID    int
}

// NewGraph returns an empty graph over numQubits wires.
func NewGraph(numQubits int) *Graph {
	g := &Graph{
		NumQubits: numQubits,
		Nodes:     make(map[int]*Node),
		first:     make([]int, numQubits),
		last:      make([]int, numQubits),
	}
	for q := range numQubits {
		g.first[q] = boundary
		g.last[q] = boundary
	}
	return g
}

// FromCircuit builds the wire graph of c.
func FromCircuit(c *circuit.Circuit) *Graph {
	g := NewGraph(c.NumQubits())
	c.Each(func(_ int, op circuit.Operation) {
		g.Append(op)
	})
	return g
}

// Append adds op at the end of its wires and returns its node.
func (g *Graph) Append(op circuit.Operation) *Node {
	n := &Node{ID: g.nextID, Op: op, Prev: make(map[int]int), Next: make(map[int]int)}
	g.nextID++
	for _, q := range op.Qubits() {
		n.Prev[q] = g.last[q]
		n.Next[q] = boundary
		if g.last[q] == boundary {
			g.first[q] = n.ID
		} else {
			g.Nodes[g.last[q]].Next[q] = n.ID
		}
		g.last[q] = n.ID
	}
	g.Nodes[n.ID] = n
	return n
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Nodes) }

// Next returns the node following id on wire q.
func (g *Graph) Next(id, q int) (*Node, bool) {
	n, ok := g.Nodes[id]
	if !ok {
		return nil, false
	}
	nid, ok := n.Next[q]
	if !ok || nid == boundary {
		return nil, false
	}
	return g.Nodes[nid], true
}

// Remove deletes a node and reconnects its wires.
func (g *Graph) Remove(id int) {
	n, ok := g.Nodes[id]
	if !ok {
		return
	}
	for q, p := range n.Prev {
		nx := n.Next[q]
		if p == boundary {
			g.first[q] = nx
		} else {
			g.Nodes[p].Next[q] = nx
		}
		if nx == boundary {
			g.last[q] = p
		} else {
			g.Nodes[nx].Prev[q] = p
		}
	}
	delete(g.Nodes, id)
}

// Dependencies returns the IDs of the nodes id directly depends on.
func (g *Graph) Dependencies(id int) []int {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	var deps []int
	for _, p := range n.Prev {
		if p != boundary && !slices.Contains(deps, p) {
			deps = append(deps, p)
		}
	}
	slices.Sort(deps)
	return deps
}

// TopologicalSort returns nodes so that every node follows its
// dependencies, breaking ties by lowest ID.
func (g *Graph) TopologicalSort() []*Node {
	indeg := make(map[int]int, len(g.Nodes))
	for id := range g.Nodes {
		indeg[id] = len(g.Dependencies(id))
	}
	var ready []int
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]*Node, 0, len(g.Nodes))
	for len(ready) > 0 {
		slices.Sort(ready)
		id := ready[0]
		ready = ready[1:]
		n := g.Nodes[id]
		out = append(out, n)

		seen := make(map[int]bool)
		for _, nx := range n.Next {
			if nx == boundary || seen[nx] {
				continue
			}
			seen[nx] = true
			indeg[nx]--
			if indeg[nx] == 0 {
				ready = append(ready, nx)
			}
		}
	}
	return out
}

// ToCircuit re-extracts a circuit in topological order.
func (g *Graph) ToCircuit() (*circuit.Circuit, error) {
	nodes := g.TopologicalSort()
	ops := make([]circuit.Operation, len(nodes))
	for i, n := range nodes {
		ops[i] = n.Op
	}
	return circuit.New(g.NumQubits, ops)
}

// GraphPass simplifies the wire graph with global rewrite rules applied to a
// fixpoint:
//   - identity elimination
//   - inverse elimination of adjacent nodes on identical wires
//   - Z-phase fusion along a wire, through CX controls
//   - X-phase fusion along a wire, through CX targets
//   - Hadamard colour change: H RZ(t) H = RX(t) and H RX(t) H = RZ(t)
type GraphPass struct{}

func (GraphPass) Name() string { return string(PathGraph) }

func (GraphPass) Run(c *circuit.Circuit) (*circuit.Circuit, error) {
	g := FromCircuit(c)
	for g.simplify() {
	}
	return g.ToCircuit()
}

// simplify applies the first matching rule and reports whether the graph
// changed.
func (g *Graph) simplify() bool {
	ids := make([]int, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		n := g.Nodes[id]
		if isIdentity(n.Op) {
			g.Remove(id)
			return true
		}
		if g.eliminateInverse(n) || g.fusePhase(n) || g.colourChange(n) {
			return true
		}
	}
	return false
}

func (g *Graph) eliminateInverse(n *Node) bool {
	qs := n.Op.Qubits()
	m, ok := g.Next(n.ID, qs[0])
	if !ok {
		return false
	}
	for _, q := range qs[1:] {
		if n.Next[q] != m.ID {
			return false
		}
	}
	if len(m.Op.Qubits()) != len(qs) || !cancels(n.Op, m.Op) {
		return false
	}
	g.Remove(m.ID)
	g.Remove(n.ID)
	return true
}

// fusePhase walks forward from a single-qubit rotation to the next rotation
// of the same axis it can reach by commuting through CX gates.
func (g *Graph) fusePhase(n *Node) bool {
	ax, _ := rotation(n.Op)
	if ax == axisNone || len(n.Op.Qubits()) != 1 {
		return false
	}
	q := n.Op.Targets[0]
	for m, ok := g.Next(n.ID, q); ok; m, ok = g.Next(m.ID, q) {
		if m.Op.Kind == circuit.GateCX {
			if commutesThroughCX(n.Op, m.Op) {
				continue
			}
			return false
		}
		merged, keep, ok := fuse(n.Op, m.Op)
		if !ok {
			return false
		}
		g.Remove(m.ID)
		if keep {
			n.Op = merged
		} else {
			g.Remove(n.ID)
		}
		return true
	}
	return false
}

func (g *Graph) colourChange(n *Node) bool {
	if n.Op.Kind != circuit.GateH {
		return false
	}
	q := n.Op.Targets[0]
	mid, ok := g.Next(n.ID, q)
	if !ok || len(mid.Op.Qubits()) != 1 {
		return false
	}
	end, ok := g.Next(mid.ID, q)
	if !ok || end.Op.Kind != circuit.GateH {
		return false
	}

	ax, theta := rotation(mid.Op)
	switch ax {
	case axisZ:
		ax = axisX
	case axisX:
		ax = axisZ
	default:
		return false
	}
	g.Remove(end.ID)
	g.Remove(mid.ID)
	if op, keep := fromRotation(ax, q, theta); keep {
		n.Op = op
	} else {
		g.Remove(n.ID)
	}
	return true
}
