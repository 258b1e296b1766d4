package analysis

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"deqcore/internal/qerr"
	"deqcore/internal/sim"
)

// Request is one analysis or optimization call.
type Request struct {
	Source     string  `json:"source" yaml:"source" validate:"required"`
	Format     string  `json:"format" yaml:"format"`
	NoiseLevel float64 `json:"noise_level" yaml:"noise_level" validate:"gte=0,lte=1"`
	// SizeThreshold enables optimization when set.
	SizeThreshold *int `json:"size_threshold,omitempty" yaml:"size_threshold,omitempty" validate:"omitempty,gte=0"`
}

var validate = validator.New()

func (r Request) validate() error {
	if math.IsNaN(r.NoiseLevel) {
		return qerr.Malformed(qerr.StageValidate, "noise level is NaN")
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return qerr.Malformed(qerr.StageValidate, "%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return qerr.Wrap(err, qerr.KindMalformedCircuit, qerr.StageValidate, "invalid request")
	}
	return nil
}

// Threshold returns a pointer to n, for building requests.
func Threshold(n int) *int { return &n }

const boundaryPlaces = 4

// round4 rounds half away from zero at four decimal places.
func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(boundaryPlaces).Float64()
	return f
}

func roundObservables(o sim.Observables) sim.Observables {
	return sim.Observables{Expectation: round4(o.Expectation), Energy: round4(o.Energy)}
}
