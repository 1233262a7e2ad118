package glm

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/CraigKelly/quantmc/rand"
)

// LogPrior is a log prior density on the coefficients, up to a constant
type LogPrior func(coef []float64) float64

// CauchySlopePrior is the weakly informative prior of Gelman et al. (2008)
// on the slope (coefficient 1) with the given center and scale.
func CauchySlopePrior(center, scale float64) LogPrior {
	return func(coef []float64) float64 {
		d := (coef[1] - center) / scale
		return -math.Log(1 + d*d)
	}
}

// MHUpdate runs one independence Metropolis-Hastings step for the
// coefficients: the proposal is a multivariate t with df degrees of freedom
// centered at the fit with the inverse information as scale matrix. prior may
// be nil for a flat prior. Returns the new coefficients and whether the
// proposal was accepted.
func MHUpdate(gen *rand.Generator, prev []float64, fit *Fit, X *mat.Dense, y, w []float64, df float64, prior LogPrior) ([]float64, bool, error) {
	if !fit.Finite() {
		return nil, false, errors.New("MH update needs a finite GLM fit")
	}
	if len(prev) != len(fit.Coef) {
		return nil, false, errors.Errorf("Coefficient length mismatch %d != %d", len(prev), len(fit.Coef))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(fit.Info); !ok {
		return nil, false, errors.New("GLM information is not positive definite")
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, false, errors.Wrap(err, "Inverting GLM information")
	}

	prop, ok := distmv.NewStudentsT(fit.Coef, &cov, df, gen)
	if !ok {
		return nil, false, errors.New("Could not build t proposal from GLM covariance")
	}

	logTarget := func(b []float64) float64 {
		lt := LogLik(X, y, w, b)
		if prior != nil {
			lt += prior(b)
		}
		return lt
	}

	next := prop.Rand(nil)
	logA := logTarget(next) - logTarget(prev) + prop.LogProb(prev) - prop.LogProb(next)

	if logA >= 0 || math.Log(gen.Float64()) < logA {
		return next, true, nil
	}
	out := make([]float64, len(prev))
	copy(out, prev)
	return out, false, nil
}
