package mitigation

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerateFit is returned when the sample points cannot determine a fit.
var ErrDegenerateFit = errors.New("degenerate fit")

// linearFit returns slope and intercept of the least-squares line y = a*x + b.
func linearFit(xs, ys []float64) (a, b float64, err error) {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0, 0, errors.Wrapf(ErrDegenerateFit, "need at least two points, got %d", len(xs))
	}
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if sxx < 1e-12 {
		return 0, 0, errors.Wrap(ErrDegenerateFit, "x values have no spread")
	}
	a = sxy / sxx
	return a, my - a*mx, nil
}

// richardson evaluates the Lagrange interpolant through (xs, ys) at x = 0.
func richardson(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0, errors.Wrapf(ErrDegenerateFit, "need at least two points, got %d", len(xs))
	}
	est := 0.0
	for i := range xs {
		w := 1.0
		for j := range xs {
			if i == j {
				continue
			}
			d := xs[i] - xs[j]
			if math.Abs(d) < 1e-12 {
				return 0, errors.Wrap(ErrDegenerateFit, "repeated scale factor")
			}
			w *= xs[j] / (xs[j] - xs[i])
		}
		est += w * ys[i]
	}
	return est, nil
}
