// Package analysis is the entry point of the core: it parses a circuit,
// selects and runs a mitigation strategy, and reports ideal, raw and
// mitigated observables with the circuit re-emitted in other formats.
package analysis

import (
	"time"

	"go.uber.org/zap"

	"deqcore/internal/circuit"
	"deqcore/internal/classify"
	"deqcore/internal/config"
	"deqcore/internal/format"
	"deqcore/internal/mitigation"
	"deqcore/internal/optimize"
	"deqcore/internal/qerr"
	"deqcore/internal/sim"
	"deqcore/internal/strategy"
)

// TranspileTargets are the formats every analysis re-emits the circuit in.
var TranspileTargets = []format.Tag{format.Qiskit, format.Cirq}

// Results holds the three observable pairs of an analysis.
type Results struct {
	Ideal     sim.Observables `json:"ideal" yaml:"ideal"`
	Raw       sim.Observables `json:"raw" yaml:"raw"`
	Mitigated sim.Observables `json:"mitigated" yaml:"mitigated"`
}

// StrategyReport records the selected and the actually used strategy.
type StrategyReport struct {
	Selected strategy.Tag `json:"selected" yaml:"selected"`
	Used     strategy.Tag `json:"used" yaml:"used"`
	Fallback string       `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Report is the result of Analyze. Float fields are rounded to four decimal
// places.
type Report struct {
	CircuitID      string                `json:"circuit_id" yaml:"circuit_id"`
	Format         format.Tag            `json:"format" yaml:"format"`
	NumQubits      int                   `json:"num_qubits" yaml:"num_qubits"`
	NoiseLevel     float64               `json:"noise_level" yaml:"noise_level"`
	Executor       string                `json:"executor" yaml:"executor"`
	Counts         classify.Counts       `json:"counts" yaml:"counts"`
	Strategy       StrategyReport        `json:"strategy" yaml:"strategy"`
	Results        Results               `json:"results" yaml:"results"`
	TranspiledCode map[format.Tag]string `json:"transpiled_code" yaml:"transpiled_code"`
	Optimization   *OptimizeReport       `json:"optimization,omitempty" yaml:"optimization,omitempty"`
}

// OptimizeReport is the result of Optimize: the optimized circuit in the
// caller's format plus the size comparison.
type OptimizeReport struct {
	CircuitID string          `json:"circuit_id" yaml:"circuit_id"`
	Format    format.Tag      `json:"format" yaml:"format"`
	Code      string          `json:"code" yaml:"code"`
	Report    optimize.Report `json:"report" yaml:"report"`

	Circuit *circuit.Circuit `json:"-" yaml:"-"`
}

// Analyzer runs analysis calls. It keeps no per-call state and is safe for
// concurrent use.
type Analyzer struct {
	cfg       *config.Config
	registry  *format.Registry
	executors map[format.Tag]sim.Executor
	engines   map[format.Tag]*mitigation.Engine
	logger    *zap.Logger
}

// New builds an analyzer from cfg. A nil logger discards logs.
func New(cfg *config.Config, logger *zap.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		cfg:       cfg,
		registry:  format.Default(),
		executors: make(map[format.Tag]sim.Executor, len(format.Tags)),
		engines:   make(map[format.Tag]*mitigation.Engine, len(format.Tags)),
		logger:    logger,
	}

	density := sim.NewDensityExecutor(cfg.Simulation.MaxQubits)
	trajectory := sim.NewTrajectoryExecutor(cfg.Simulation.MaxQubits, cfg.Simulation.Trajectories, cfg.Simulation.Seed)
	a.executors[format.Qiskit] = trajectory
	a.executors[format.Cirq] = density
	a.executors[format.QASM] = density

	for tag, ex := range a.executors {
		a.engines[tag] = a.newEngine(ex)
	}
	return a
}

func (a *Analyzer) newEngine(ex sim.Executor) *mitigation.Engine {
	m := a.cfg.Mitigation
	method, err := mitigation.ParseMethod(m.Extrapolation.Method)
	if err != nil {
		method = mitigation.Linear
	}
	return mitigation.NewEngine(ex,
		[]mitigation.Mitigator{
			mitigation.NewRegression(ex, m.Regression.TrainingCircuits, m.Regression.ReplaceFraction),
			mitigation.NewQuasiProbability(ex, m.QuasiProbability.Samples, m.QuasiProbability.Workers),
			mitigation.NewExtrapolation(ex, method, m.Extrapolation.ScaleFactors),
		},
		mitigation.WithLogger(a.logger),
		mitigation.OnFallback(func(from, to strategy.Tag) {
			mitigationFallbacksTotal.WithLabelValues(from.String(), to.String()).Inc()
		}),
	)
}

// Registry returns the format registry.
func (a *Analyzer) Registry() *format.Registry { return a.registry }

// Executor returns the executor used for circuits of the given format.
func (a *Analyzer) Executor(tag format.Tag) (sim.Executor, error) {
	ex, ok := a.executors[tag]
	if !ok {
		return nil, qerr.UnsupportedFormat(string(tag))
	}
	return ex, nil
}

// Analyze runs the full pipeline: validate, parse, classify, select,
// execute, mitigate, transpile and, when the request carries a size
// threshold, optimize.
func (a *Analyzer) Analyze(req Request) (report *Report, err error) {
	start := time.Now()
	defer func() {
		analysisDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			a.fail(err)
		}
	}()

	tag, c, err := a.ingest(req)
	if err != nil {
		return nil, err
	}
	return a.analyzeCircuit(c, tag, req)
}

// AnalyzeCircuit runs the pipeline on an already parsed circuit.
func (a *Analyzer) AnalyzeCircuit(c *circuit.Circuit, tag format.Tag, noise float64, threshold *int) (report *Report, err error) {
	req := Request{Source: "ir", Format: string(tag), NoiseLevel: noise, SizeThreshold: threshold}
	defer func() {
		if err != nil {
			a.fail(err)
		}
	}()
	if err := req.validate(); err != nil {
		return nil, err
	}
	return a.analyzeCircuit(c, tag, req)
}

func (a *Analyzer) analyzeCircuit(c *circuit.Circuit, tag format.Tag, req Request) (*Report, error) {
	ex, err := a.Executor(tag)
	if err != nil {
		return nil, err
	}
	p := req.NoiseLevel
	id := c.Fingerprint()
	counts := classify.Count(c)
	selected := strategy.Select(counts.Clifford, counts.NonClifford)

	a.logger.Info("analysis started",
		zap.String("circuit_id", id),
		zap.String("format", tag.String()),
		zap.Int("qubits", c.NumQubits()),
		zap.Int("clifford", counts.Clifford),
		zap.Int("non_clifford", counts.NonClifford),
		zap.Stringer("strategy", selected),
		zap.Float64("noise", p),
	)

	ideal, err := ex.Execute(c, 0)
	if err != nil {
		return nil, err
	}
	raw, err := ex.Execute(c, p)
	if err != nil {
		return nil, err
	}
	outcome, err := a.engines[tag].Run(c, p, selected)
	if err != nil {
		return nil, err
	}

	transpiled := make(map[format.Tag]string, len(TranspileTargets))
	for _, target := range TranspileTargets {
		code, err := a.registry.FromIR(c, target)
		if err != nil {
			return nil, qerr.Wrap(err, qerr.KindOf(err), qerr.StageTranspile, "emit "+target.String())
		}
		transpiled[target] = code
	}

	report := &Report{
		CircuitID:  id,
		Format:     tag,
		NumQubits:  c.NumQubits(),
		NoiseLevel: p,
		Executor:   ex.Name(),
		Counts:     counts,
		Strategy: StrategyReport{
			Selected: outcome.Selected,
			Used:     outcome.Used,
			Fallback: outcome.Fallback,
		},
		Results: Results{
			Ideal:     roundObservables(ideal),
			Raw:       roundObservables(raw),
			Mitigated: roundObservables(outcome.Value),
		},
		TranspiledCode: transpiled,
	}

	if req.SizeThreshold != nil {
		opt, err := a.optimizeCircuit(c, tag, *req.SizeThreshold)
		if err != nil {
			return nil, err
		}
		report.Optimization = opt
	}

	analysesTotal.WithLabelValues(outcome.Used.String()).Inc()
	a.logger.Info("analysis finished",
		zap.String("circuit_id", id),
		zap.Stringer("strategy_used", outcome.Used),
		zap.Float64("ideal", report.Results.Ideal.Expectation),
		zap.Float64("raw", report.Results.Raw.Expectation),
		zap.Float64("mitigated", report.Results.Mitigated.Expectation),
	)
	return report, nil
}

// Optimize parses the request circuit and returns it optimized in the same
// format. Without a size threshold the configured one applies.
func (a *Analyzer) Optimize(req Request) (report *OptimizeReport, err error) {
	defer func() {
		if err != nil {
			a.fail(err)
		}
	}()
	tag, c, err := a.ingest(req)
	if err != nil {
		return nil, err
	}
	threshold := a.cfg.Optimizer.SizeThreshold
	if req.SizeThreshold != nil {
		threshold = *req.SizeThreshold
	}
	return a.optimizeCircuit(c, tag, threshold)
}

// OptimizeCircuit optimizes an already parsed circuit and emits it in tag.
func (a *Analyzer) OptimizeCircuit(c *circuit.Circuit, tag format.Tag, threshold int) (report *OptimizeReport, err error) {
	defer func() {
		if err != nil {
			a.fail(err)
		}
	}()
	if threshold < 0 {
		return nil, qerr.Malformed(qerr.StageValidate, "size threshold %d is negative", threshold)
	}
	return a.optimizeCircuit(c, tag, threshold)
}

func (a *Analyzer) optimizeCircuit(c *circuit.Circuit, tag format.Tag, threshold int) (*OptimizeReport, error) {
	out, rep, err := optimize.NewDispatcher(threshold, a.logger).Optimize(c)
	if err != nil {
		return nil, err
	}
	optimizationsTotal.WithLabelValues(string(rep.Path)).Inc()

	code, err := a.registry.FromIR(out, tag)
	if err != nil {
		return nil, qerr.Wrap(err, qerr.KindOf(err), qerr.StageTranspile, "emit optimized "+tag.String())
	}
	return &OptimizeReport{CircuitID: out.Fingerprint(), Format: tag, Code: code, Report: rep, Circuit: out}, nil
}

// Convert re-expresses circuit text in another format via the IR.
func (a *Analyzer) Convert(src, from, to string) (string, error) {
	fromTag, err := format.ParseTag(from)
	if err != nil {
		return "", err
	}
	toTag, err := format.ParseTag(to)
	if err != nil {
		return "", err
	}
	return a.registry.Convert(src, fromTag, toTag)
}

func (a *Analyzer) ingest(req Request) (format.Tag, *circuit.Circuit, error) {
	tag, err := format.ParseTag(req.Format)
	if err != nil {
		return "", nil, err
	}
	if err := req.validate(); err != nil {
		return "", nil, err
	}
	c, err := a.registry.ToIR(req.Source, tag)
	if err != nil {
		return "", nil, err
	}
	return tag, c, nil
}

func (a *Analyzer) fail(err error) {
	kind := qerr.KindOf(err)
	analysisFailuresTotal.WithLabelValues(kind.String()).Inc()
	a.logger.Error("analysis failed",
		zap.String("kind", kind.String()),
		zap.String("stage", qerr.StageOf(err)),
		zap.Error(err),
	)
}
