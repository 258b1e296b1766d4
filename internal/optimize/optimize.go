// Package optimize shrinks circuits with rewrite passes chosen by circuit
// size.
package optimize

import (
	"go.uber.org/zap"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
)

// DefaultThreshold is the largest operation count routed to the local pass.
const DefaultThreshold = 50

// Path names the pass a circuit was routed to.
type Path string

const (
	PathLocal Path = "local"
	PathGraph Path = "graph"
)

// Pass rewrites a circuit into an equivalent one.
type Pass interface {
	Name() string
	Run(c *circuit.Circuit) (*circuit.Circuit, error)
}

// Report compares a circuit before and after optimization.
type Report struct {
	OriginalGateCount  int  `json:"original_gate_count" yaml:"original_gate_count"`
	OptimizedGateCount int  `json:"optimized_gate_count" yaml:"optimized_gate_count"`
	OriginalDepth      int  `json:"original_depth" yaml:"original_depth"`
	OptimizedDepth     int  `json:"optimized_depth" yaml:"optimized_depth"`
	Path               Path `json:"path" yaml:"path"`
}

// Dispatcher routes circuits of at most Threshold operations to Local and
// larger ones to Graph.
type Dispatcher struct {
	Threshold int
	Local     Pass
	Graph     Pass
	logger    *zap.Logger
}

// NewDispatcher returns a dispatcher over the built-in passes.
func NewDispatcher(threshold int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{Threshold: threshold, Local: LocalPass{}, Graph: GraphPass{}, logger: logger}
}

// Route returns the path a circuit would take.
func (d *Dispatcher) Route(c *circuit.Circuit) Path {
	if c.Len() <= d.Threshold {
		return PathLocal
	}
	return PathGraph
}

// Optimize runs the routed pass. A result on a different number of qubits
// is a TensorShapeMismatch.
func (d *Dispatcher) Optimize(c *circuit.Circuit) (*circuit.Circuit, Report, error) {
	path := d.Route(c)
	pass := d.Local
	if path == PathGraph {
		pass = d.Graph
	}
	d.logger.Debug("optimizing circuit",
		zap.String("circuit_id", c.Fingerprint()),
		zap.Int("operations", c.Len()),
		zap.Int("threshold", d.Threshold),
		zap.String("path", string(path)),
	)

	out, err := pass.Run(c)
	if err != nil {
		return nil, Report{}, qerr.Wrap(err, qerr.KindOf(err), qerr.StageOptimize, pass.Name()+" pass failed")
	}
	if out.NumQubits() != c.NumQubits() {
		return nil, Report{}, qerr.Newf(qerr.KindTensorShapeMismatch, qerr.StageOptimize,
			"%s pass changed qubit count from %d to %d", pass.Name(), c.NumQubits(), out.NumQubits())
	}

	return out, Report{
		OriginalGateCount:  c.Len(),
		OptimizedGateCount: out.Len(),
		OriginalDepth:      c.Depth(),
		OptimizedDepth:     out.Depth(),
		Path:               path,
	}, nil
}
