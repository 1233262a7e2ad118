// Package numeric provides vectorized solvers over many independent scalar
// problems packed into slices: bisection, Halley's method and the Laplace
// approximation. The solvers only see ScalarFunction, so any density with
// closed-form derivatives can be plugged in.
package numeric

import (
	"fmt"
	"math"
)

// ScalarFunction is a vectorized function of one variable: element i of x is
// the argument of independent problem i and the result goes to dst[i].
type ScalarFunction interface {
	Evaluate(dst, x []float64)
}

// Func adapts an ordinary function to ScalarFunction by applying it to every
// element.
type Func func(float64) float64

// Evaluate implements ScalarFunction
func (f Func) Evaluate(dst, x []float64) {
	for i, v := range x {
		dst[i] = f(v)
	}
}

// Result is the output of an iterative solver
type Result struct {
	X          []float64 // Best estimate per problem
	Iterations int       // Iterations actually run
}

// BracketingError is returned by Bisect when the function does not change
// sign over a starting bracket.
type BracketingError struct {
	Index int     // First offending problem
	Lower float64 // Its bracket
	Upper float64
}

func (e *BracketingError) Error() string {
	return fmt.Sprintf(
		"Bounds do not bracket a root for element %d: f(%g) and f(%g) share a sign",
		e.Index, e.Lower, e.Upper,
	)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		a := math.Abs(v)
		if a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}
