package numeric

import (
	"math"
)

// LaplaceApprox approximates the integral of f over the real line for every
// problem as sqrt(2 pi / curvature) f(mode). Curvature must be positive (the
// negated second derivative of log f at its maximum); that is up to the
// caller.
func LaplaceApprox(f ScalarFunction, mode, curvature []float64) []float64 {
	out := make([]float64, len(mode))
	f.Evaluate(out, mode)
	for i, c := range curvature {
		out[i] *= math.Sqrt(2 * math.Pi / c)
	}
	return out
}
