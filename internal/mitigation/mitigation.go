// Package mitigation implements the three error-mitigation strategies and
// the engine that runs the selected one with fallbacks.
package mitigation

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"deqcore/internal/circuit"
	"deqcore/internal/qerr"
	"deqcore/internal/sim"
	"deqcore/internal/strategy"
)

// Mitigator estimates the noise-free observables of a circuit executed at
// depolarizing strength p. Implementations keep no state between calls.
type Mitigator interface {
	Tag() strategy.Tag
	Mitigate(c *circuit.Circuit, p float64) (sim.Observables, error)
}

// Outcome is the result of an engine run.
type Outcome struct {
	Value    sim.Observables
	Selected strategy.Tag
	Used     strategy.Tag
	// Fallback holds the failure reason of the strategies that were
	// abandoned, empty when Selected succeeded.
	Fallback string
}

// FallbackFunc observes a strategy switch.
type FallbackFunc func(from, to strategy.Tag)

// Engine runs a mitigator and degrades to weaker strategies on failure.
type Engine struct {
	executor   sim.Executor
	mitigators map[strategy.Tag]Mitigator
	logger     *zap.Logger
	onFallback FallbackFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for fallback warnings.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// OnFallback registers a hook called for every strategy switch.
func OnFallback(fn FallbackFunc) EngineOption {
	return func(e *Engine) { e.onFallback = fn }
}

// NewEngine returns an engine over the given mitigators. The executor is used
// for raw execution when every strategy fails.
func NewEngine(executor sim.Executor, mitigators []Mitigator, opts ...EngineOption) *Engine {
	e := &Engine{
		executor:   executor,
		mitigators: make(map[strategy.Tag]Mitigator, len(mitigators)),
		logger:     zap.NewNop(),
	}
	for _, m := range mitigators {
		e.mitigators[m.Tag()] = m
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run attempts the selected strategy. A QuasiProbability run without any
// representable operation retries with Extrapolation; any other failure
// falls back to raw execution. Only a failing raw execution is returned as an
// error.
func (e *Engine) Run(c *circuit.Circuit, p float64, selected strategy.Tag) (Outcome, error) {
	out := Outcome{Selected: selected, Used: selected}

	m, ok := e.mitigators[selected]
	if !ok {
		return e.fallback(c, p, out, selected, errors.Errorf("no mitigator registered for %s", selected))
	}
	v, err := m.Mitigate(c, p)
	if err == nil {
		out.Value = v
		return out, nil
	}
	return e.fallback(c, p, out, selected, err)
}

func (e *Engine) fallback(c *circuit.Circuit, p float64, out Outcome, from strategy.Tag, cause error) (Outcome, error) {
	// Invalid input fails the same way under every strategy.
	if k := qerr.KindOf(cause); k == qerr.KindInvalidCircuit || k == qerr.KindMalformedCircuit {
		return out, cause
	}

	if from == strategy.QuasiProbability && errors.Is(cause, ErrNoRepresentations) {
		if zne, ok := e.mitigators[strategy.Extrapolation]; ok {
			e.warn(c, from, strategy.Extrapolation, cause)
			out.Fallback = cause.Error()
			v, err := zne.Mitigate(c, p)
			if err == nil {
				out.Value = v
				out.Used = strategy.Extrapolation
				return out, nil
			}
			from, cause = strategy.Extrapolation, err
		}
	}

	e.warn(c, from, strategy.Raw, cause)
	if out.Fallback == "" {
		out.Fallback = cause.Error()
	} else {
		out.Fallback += "; " + cause.Error()
	}
	v, err := e.executor.Execute(c, p)
	if err != nil {
		return out, err
	}
	out.Value = v
	out.Used = strategy.Raw
	return out, nil
}

func (e *Engine) warn(c *circuit.Circuit, from, to strategy.Tag, cause error) {
	e.logger.Warn(qerr.KindMitigationFallback.String(),
		zap.String("circuit_id", c.Fingerprint()),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("reason", cause.Error()),
	)
	if e.onFallback != nil {
		e.onFallback(from, to)
	}
}

func mitigateErr(err error, tag strategy.Tag, format string, args ...any) error {
	return errors.Wrapf(err, "%s: "+format, append([]any{tag}, args...)...)
}
