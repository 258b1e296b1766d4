package mitigation

import (
	"strings"

	"github.com/pkg/errors"

	"deqcore/internal/circuit"
	"deqcore/internal/sim"
	"deqcore/internal/strategy"
)

// Method selects the zero-noise fit.
type Method string

const (
	Linear     Method = "linear"
	Richardson Method = "richardson"
)

// ParseMethod accepts a method name in any case.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Linear, Richardson:
		return m, nil
	}
	return "", errors.Errorf("unknown extrapolation method %q", s)
}

// DefaultScaleFactors returns the scale factors used by each method when none
// are configured.
func DefaultScaleFactors(m Method) []float64 {
	if m == Richardson {
		return []float64{1, 1.5, 2}
	}
	return []float64{1, 2, 3}
}

// Extrapolation executes at scaled noise levels and extrapolates to zero noise.
type Extrapolation struct {
	Executor     sim.Executor
	Method       Method
	ScaleFactors []float64
}

// NewExtrapolation returns a zero-noise extrapolator. Empty scale factors
// select the method's defaults.
func NewExtrapolation(executor sim.Executor, method Method, scaleFactors []float64) *Extrapolation {
	if method == "" {
		method = Linear
	}
	if len(scaleFactors) == 0 {
		scaleFactors = DefaultScaleFactors(method)
	}
	return &Extrapolation{
		Executor:     executor,
		Method:       method,
		ScaleFactors: append([]float64(nil), scaleFactors...),
	}
}

func (z *Extrapolation) Tag() strategy.Tag { return strategy.Extrapolation }

func (z *Extrapolation) Mitigate(c *circuit.Circuit, p float64) (sim.Observables, error) {
	if len(z.ScaleFactors) < 2 {
		return sim.Observables{}, errors.Wrapf(ErrDegenerateFit, "%d scale factors", len(z.ScaleFactors))
	}
	for _, lambda := range z.ScaleFactors {
		if lambda <= 0 {
			return sim.Observables{}, errors.Errorf("scale factor %g must be positive", lambda)
		}
		if lambda*p > 1 {
			return sim.Observables{}, errors.Errorf("scaled noise %g x %g exceeds 1", lambda, p)
		}
	}

	exps := make([]float64, len(z.ScaleFactors))
	energies := make([]float64, len(z.ScaleFactors))
	for i, lambda := range z.ScaleFactors {
		obs, err := z.Executor.Execute(c, lambda*p)
		if err != nil {
			return sim.Observables{}, mitigateErr(err, z.Tag(), "execute at scale %g", lambda)
		}
		exps[i], energies[i] = obs.Expectation, obs.Energy
	}

	exp, err := z.intercept(exps)
	if err != nil {
		return sim.Observables{}, err
	}
	energy, err := z.intercept(energies)
	if err != nil {
		return sim.Observables{}, err
	}
	return sim.Observables{Expectation: exp, Energy: energy}, nil
}

func (z *Extrapolation) intercept(ys []float64) (float64, error) {
	switch z.Method {
	case Richardson:
		return richardson(z.ScaleFactors, ys)
	case Linear:
		_, b, err := linearFit(z.ScaleFactors, ys)
		return b, err
	}
	return 0, errors.Errorf("unknown extrapolation method %q", z.Method)
}
