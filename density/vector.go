package density

import (
	"github.com/pkg/errors"
)

// CensoredParams holds the per-element parameters of the censored intensity
// density. Element i of every slice belongs to the same independent problem
// (in practice: one peptide).
type CensoredParams struct {
	Mean     []float64
	Variance []float64
	Eta0     []float64
	Eta1     []float64
}

// NewCensoredParams checks that all slices share a length
func NewCensoredParams(mean, variance, eta0, eta1 []float64) (*CensoredParams, error) {
	n := len(mean)
	if len(variance) != n || len(eta0) != n || len(eta1) != n {
		return nil, errors.Errorf(
			"Parameter length mismatch: mean=%d variance=%d eta0=%d eta1=%d",
			n, len(variance), len(eta0), len(eta1),
		)
	}
	return &CensoredParams{Mean: mean, Variance: variance, Eta0: eta0, Eta1: eta1}, nil
}

// Len is the number of elements
func (p *CensoredParams) Len() int {
	return len(p.Mean)
}

// Slice returns the params for elements [lo, hi) without copying
func (p *CensoredParams) Slice(lo, hi int) *CensoredParams {
	return &CensoredParams{
		Mean:     p.Mean[lo:hi],
		Variance: p.Variance[lo:hi],
		Eta0:     p.Eta0[lo:hi],
		Eta1:     p.Eta1[lo:hi],
	}
}

type scalarFunc func(x, mean, variance, eta0, eta1 float64) float64

// Func is one of the scalar functions above bound to a set of params. It
// satisfies numeric.ScalarFunction.
type Func struct {
	p *CensoredParams
	f scalarFunc
}

// Evaluate fills dst[i] with f(x[i]) for problem i
func (e Func) Evaluate(dst, x []float64) {
	p := e.p
	for i, xi := range x {
		dst[i] = e.f(xi, p.Mean[i], p.Variance[i], p.Eta0[i], p.Eta1[i])
	}
}

// LogDensity is the vectorized LogDensityCensored
func (p *CensoredParams) LogDensity() Func {
	return Func{p, LogDensityCensored}
}

// Density is the vectorized DensityCensored
func (p *CensoredParams) Density() Func {
	return Func{p, DensityCensored}
}

// Deriv1 is the vectorized Deriv1LogDensityCensored
func (p *CensoredParams) Deriv1() Func {
	return Func{p, Deriv1LogDensityCensored}
}

// Deriv2 is the vectorized Deriv2LogDensityCensored
func (p *CensoredParams) Deriv2() Func {
	return Func{p, Deriv2LogDensityCensored}
}

// Deriv3 is the vectorized Deriv3LogDensityCensored
func (p *CensoredParams) Deriv3() Func {
	return Func{p, Deriv3LogDensityCensored}
}

// NormalLogDensityVec fills dst with element-wise NormalLogDensity
func NormalLogDensityVec(dst, x, mean, variance []float64) {
	for i := range x {
		dst[i] = NormalLogDensity(x[i], mean[i], variance[i])
	}
}

// LogNormalLogDensityVec fills dst with element-wise LogNormalLogDensity
func LogNormalLogDensityVec(dst, x, mean, variance []float64) {
	for i := range x {
		dst[i] = LogNormalLogDensity(x[i], mean[i], variance[i])
	}
}

// LogProbCensoredVec fills dst with element-wise LogProbCensored
func LogProbCensoredVec(dst, x, eta0, eta1 []float64) {
	for i := range x {
		dst[i] = LogProbCensored(x[i], eta0[i], eta1[i])
	}
}

// LogProbObservedVec fills dst with element-wise LogProbObserved
func LogProbObservedVec(dst, x, eta0, eta1 []float64) {
	for i := range x {
		dst[i] = LogProbObserved(x[i], eta0[i], eta1[i])
	}
}

// LogDensityObservedVec fills dst with element-wise LogDensityObserved
func LogDensityObservedVec(dst []float64, x []float64, p *CensoredParams) {
	for i := range x {
		dst[i] = LogDensityObserved(x[i], p.Mean[i], p.Variance[i], p.Eta0[i], p.Eta1[i])
	}
}
