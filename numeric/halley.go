package numeric

import (
	"github.com/pkg/errors"
)

// Halley runs the vectorized third-order iteration
//
//	x <- x - 2 f f' / (2 f'^2 - f f'')
//
// from x0. It stops after the first iteration whose largest |f(x)| (measured
// before the step) is below tol, or after maxIter iterations. There is no
// bracketing: a poor x0 can diverge, so seed it near the root (Bisect does
// that well).
func Halley(f, fprime, f2prime ScalarFunction, x0 []float64, tol float64, maxIter int) (*Result, error) {
	n := len(x0)
	if n < 1 {
		return &Result{X: []float64{}}, nil
	}
	if maxIter < 1 {
		return nil, errors.Errorf("Invalid max iterations %d", maxIter)
	}

	x := make([]float64, n)
	copy(x, x0)

	fx := make([]float64, n)
	d1 := make([]float64, n)
	d2 := make([]float64, n)

	t := 0
	for t < maxIter {
		f.Evaluate(fx, x)
		fprime.Evaluate(d1, x)
		f2prime.Evaluate(d2, x)

		for i := range x {
			x[i] -= (2 * fx[i] * d1[i]) / (2*d1[i]*d1[i] - fx[i]*d2[i])
		}

		t++
		if maxAbs(fx) < tol {
			break
		}
	}

	return &Result{X: x, Iterations: t}, nil
}
