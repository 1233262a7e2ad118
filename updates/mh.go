package updates

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/quantmc/rand"
)

// VarianceHyperparams updates (shape, rate) of the inverse-gamma law of a set
// of variances. The rate is a Gibbs draw given the shape; the shape is a
// log-scale random walk MH step given the new rate. Only the shape step can
// reject, and its outcome is returned.
func VarianceHyperparams(gen *rand.Generator, variances []float64, shapePrev, ratePrev float64, prior VarianceHyperPrior) (shape, rate float64, accepted bool) {
	k := float64(len(variances))
	sumPrec, sumLogPrec := 0.0, 0.0
	for _, v := range variances {
		sumPrec += 1 / v
		sumLogPrec -= math.Log(v)
	}

	rate = distuv.Gamma{Alpha: prior.RateShape + k*shapePrev, Beta: prior.RateRate + sumPrec, Src: gen}.Rand()

	logTarget := func(a float64) float64 {
		lg, _ := math.Lgamma(a)
		la := math.Log(a)
		d := la - prior.ShapeMeanLog
		// log-normal prior on a
		lp := -0.5*prior.ShapePrecLog*d*d - la
		return k*(a*math.Log(rate)-lg) + (a-1)*sumLogPrec + lp
	}

	prop := shapePrev * math.Exp(stepSD(prior.StepSD)*gen.NormFloat64())
	// Random walk on log(a): the Jacobian is a'/a
	logA := logTarget(prop) - logTarget(shapePrev) + math.Log(prop) - math.Log(shapePrev)
	if accept(gen.Float64(), logA) {
		return prop, rate, true
	}
	return shapePrev, rate, false
}

// NBinomHyperparams updates (r, lambda) of the law NB(r, lambda) of x =
// states per peptide - 1. lambda is a Gibbs draw given r; r is a log-scale
// random walk MH step given the new lambda, whose outcome is returned.
func NBinomHyperparams(gen *rand.Generator, x []int, rPrev, lambdaPrev float64, prior NBinomPrior) (r, lambda float64, accepted bool) {
	n := float64(len(x))
	sumX := 0.0
	for _, v := range x {
		sumX += float64(v)
	}

	lambda = distuv.Beta{Alpha: prior.LambdaA + n*rPrev, Beta: prior.LambdaB + sumX, Src: gen}.Rand()
	// Keep lambda off the boundary; the censored-count sampler needs lambda in (0, 1]
	lambda = math.Max(lambda, math.SmallestNonzeroFloat64)

	logLambda := math.Log(lambda)
	logTarget := func(r float64) float64 {
		ll := n * r * logLambda
		lgR, _ := math.Lgamma(r)
		for _, v := range x {
			lg, _ := math.Lgamma(float64(v) + r)
			ll += lg - lgR
		}
		return ll + gammaLogPrior(r, prior.RShape, prior.RRate)
	}

	prop := rPrev * math.Exp(stepSD(prior.StepSD)*gen.NormFloat64())
	logA := logTarget(prop) - logTarget(rPrev) + math.Log(prop) - math.Log(rPrev)
	if accept(gen.Float64(), logA) {
		return prop, lambda, true
	}
	return rPrev, lambda, false
}

// StartNBinom gives crude starting values of (r, lambda) from the moments of
// x: mean r(1-lambda)/lambda and variance r(1-lambda)/lambda^2. Without
// overdispersion r falls back to the prior mean of r (or 1).
func StartNBinom(x []int, prior NBinomPrior) (r, lambda float64) {
	if len(x) < 1 {
		return 1, 0.5
	}

	n := float64(len(x))
	mean, sq := 0.0, 0.0
	for _, v := range x {
		mean += float64(v)
	}
	mean /= n
	for _, v := range x {
		d := float64(v) - mean
		sq += d * d
	}
	variance := 0.0
	if n > 1 {
		variance = sq / (n - 1)
	}

	if variance > mean && mean > 0 {
		lambda = mean / variance
		r = mean * lambda / (1 - lambda)
	} else {
		r = 1
		if prior.RShape > 0 && prior.RRate > 0 {
			r = prior.RShape / prior.RRate
		}
		lambda = r / (r + mean)
	}

	lambda = math.Min(math.Max(lambda, 1e-6), 1-1e-6)
	return r, lambda
}

func stepSD(sd float64) float64 {
	if sd > 0 {
		return sd
	}
	return 0.25
}
