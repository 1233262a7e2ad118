package numeric

import (
	"github.com/pkg/errors"
)

// Bisect finds a root of f in [lower[i], upper[i]] for every problem i. Each
// iteration halves every bracket; iteration stops once the widest half-width
// is at most tol or after maxIter iterations, whichever comes first. The
// midpoints are returned either way: convergence is not promised, only a
// bounded cost. The input slices are not modified.
func Bisect(f ScalarFunction, lower, upper []float64, tol float64, maxIter int) (*Result, error) {
	n := len(lower)
	if len(upper) != n {
		return nil, errors.Errorf("Bracket length mismatch %d != %d", n, len(upper))
	}

	lo := make([]float64, n)
	hi := make([]float64, n)
	copy(lo, lower)
	copy(hi, upper)

	fLo := make([]float64, n)
	fHi := make([]float64, n)
	f.Evaluate(fLo, lo)
	f.Evaluate(fHi, hi)

	for i := range lo {
		if sign(fLo[i])*sign(fHi[i]) > 0 {
			return nil, &BracketingError{Index: i, Lower: lo[i], Upper: hi[i]}
		}
	}

	mid := make([]float64, n)
	halfWidth := make([]float64, n)
	update := func() {
		for i := range mid {
			mid[i] = lo[i]/2 + hi[i]/2
			halfWidth[i] = hi[i]/2 - lo[i]/2
		}
	}
	update()

	fMid := make([]float64, n)
	t := 0
	for t < maxIter && maxAbs(halfWidth) > tol {
		f.Evaluate(fMid, mid)

		for i := range mid {
			switch {
			case fMid[i] == 0:
				lo[i], hi[i] = mid[i], mid[i]
			case sign(fMid[i]) == sign(fLo[i]):
				lo[i] = mid[i]
				fLo[i] = fMid[i]
			default:
				hi[i] = mid[i]
			}
		}

		update()
		t++
	}

	return &Result{X: mid, Iterations: t}, nil
}
