// Package updates holds the conditional draws of the chain that are not
// specific to censoring: Gibbs steps for means, variances and the random
// censoring probability, and Metropolis-Hastings steps for hyperparameters.
// Every function takes the chain's generator explicitly.
package updates

import (
	"math"
)

// BetaPrior is a Beta(A, B) prior on a probability
type BetaPrior struct {
	A float64 `yaml:"prior_a" json:"prior_a"`
	B float64 `yaml:"prior_b" json:"prior_b"`
}

// NormalPrior is a normal prior given by mean and precision. Prec = 0 is flat.
type NormalPrior struct {
	Mean float64 `yaml:"prior_mean" json:"prior_mean"`
	Prec float64 `yaml:"prior_prec" json:"prior_prec"`
}

// VariancePrior is an inverse-gamma prior on a variance
type VariancePrior struct {
	Shape float64 `yaml:"prior_shape" json:"prior_shape"`
	Rate  float64 `yaml:"prior_rate" json:"prior_rate"`
}

// VarianceHyperPrior is the prior on the (shape, rate) of an inverse-gamma
// variance distribution: log(shape) is normal, rate is gamma.
type VarianceHyperPrior struct {
	ShapeMeanLog float64 `yaml:"prior_mean_log" json:"prior_mean_log"`
	ShapePrecLog float64 `yaml:"prior_prec_log" json:"prior_prec_log"`
	RateShape    float64 `yaml:"prior_shape" json:"prior_shape"`
	RateRate     float64 `yaml:"prior_rate" json:"prior_rate"`
	StepSD       float64 `yaml:"step_sd" json:"step_sd"` // log-scale random walk SD for shape
}

// NBinomPrior is the prior on the state count law NB(r, lambda): r is gamma,
// lambda is beta.
type NBinomPrior struct {
	RShape  float64 `yaml:"r_prior_shape" json:"r_prior_shape"`
	RRate   float64 `yaml:"r_prior_rate" json:"r_prior_rate"`
	LambdaA float64 `yaml:"lambda_prior_a" json:"lambda_prior_a"`
	LambdaB float64 `yaml:"lambda_prior_b" json:"lambda_prior_b"`
	StepSD  float64 `yaml:"step_sd" json:"step_sd"` // log-scale random walk SD for r
}

// RegressionPrior is an independent normal prior on (beta0, beta1)
type RegressionPrior struct {
	Mean [2]float64 `yaml:"prior_mean" json:"prior_mean"`
	Prec [2]float64 `yaml:"prior_prec" json:"prior_prec"`
}

// gammaLogPrior is the gamma log density up to a constant
func gammaLogPrior(x, shape, rate float64) float64 {
	if shape <= 0 || rate <= 0 {
		return 0 // improper flat prior
	}
	return (shape-1)*math.Log(x) - rate*x
}

// accept runs the MH decision for a log acceptance ratio
func accept(u, logA float64) bool {
	return logA >= 0 || math.Log(u) < logA
}
