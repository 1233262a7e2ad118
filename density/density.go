// Package density holds the closed-form densities of the censored intensity
// model. Everything here is a pure function; invalid parameters (for example
// a non-positive variance) produce NaN rather than an error.
package density

import (
	"math"
)

var log2Pi = math.Log(2 * math.Pi)

// NormalLogDensity is the Gaussian log density parameterized by mean and
// variance.
func NormalLogDensity(x, mean, variance float64) float64 {
	if !(variance > 0) {
		return math.NaN()
	}
	d := x - mean
	return -0.5*(log2Pi+math.Log(variance)) - d*d/2/variance
}

// LogNormalLogDensity is the log-normal log density parameterized by the mean
// and variance of log(x).
func LogNormalLogDensity(x, mean, variance float64) float64 {
	lx := math.Log(x)
	return NormalLogDensity(lx, mean, variance) - lx
}

// softplus returns log(1+e^z) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// logistic returns 1/(1+e^-z)
func logistic(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// LogProbCensored is the log probability of intensity-based censoring at
// log-intensity x: -log(1+exp(eta0 + eta1*x)).
func LogProbCensored(x, eta0, eta1 float64) float64 {
	return -softplus(eta0 + eta1*x)
}

// LogProbObserved is the log of 1 - the intensity-based censoring
// probability: -log(1+exp(-eta0 - eta1*x)).
func LogProbObserved(x, eta0, eta1 float64) float64 {
	return -softplus(-eta0 - eta1*x)
}

// LogDensityCensored is the unnormalized log density of a censored
// log-intensity. Its exponential integrates to the marginal probability of
// intensity-based censoring.
func LogDensityCensored(x, mean, variance, eta0, eta1 float64) float64 {
	return NormalLogDensity(x, mean, variance) + LogProbCensored(x, eta0, eta1)
}

// LogDensityObserved is the unnormalized log density of an observed
// log-intensity. Its exponential integrates to the marginal probability of
// observation.
func LogDensityObserved(x, mean, variance, eta0, eta1 float64) float64 {
	return NormalLogDensity(x, mean, variance) + LogProbObserved(x, eta0, eta1)
}

// DensityCensored is exp(LogDensityCensored)
func DensityCensored(x, mean, variance, eta0, eta1 float64) float64 {
	return math.Exp(LogDensityCensored(x, mean, variance, eta0, eta1))
}

// Deriv1LogDensityCensored is d/dx of LogDensityCensored
func Deriv1LogDensityCensored(x, mean, variance, eta0, eta1 float64) float64 {
	s := logistic(eta0 + eta1*x)
	return -eta1*s - (x-mean)/variance
}

// Deriv2LogDensityCensored is d2/dx2 of LogDensityCensored
func Deriv2LogDensityCensored(x, mean, variance, eta0, eta1 float64) float64 {
	s := logistic(eta0 + eta1*x)
	return -1/variance - eta1*eta1*s*(1-s)
}

// Deriv3LogDensityCensored is d3/dx3 of LogDensityCensored
func Deriv3LogDensityCensored(x, mean, variance, eta0, eta1 float64) float64 {
	s := logistic(eta0 + eta1*x)
	return -eta1 * eta1 * eta1 * s * (1 - s) * (1 - 2*s)
}
