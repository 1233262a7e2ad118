// Package glm fits the binomial model of the censoring probabilities by
// iteratively reweighted least squares and provides the Metropolis-Hastings
// correction that turns the fit into an exact update of the coefficients.
package glm

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Link names a GLM link function
type Link string

// Supported links. The censoring density is logistic, so that is the only
// link the whole model is consistent with.
const (
	Logit Link = "logit"
)

// ParseLink maps a (case-insensitive) link name to a Link
func ParseLink(name string) (Link, error) {
	switch Link(strings.ToLower(strings.TrimSpace(name))) {
	case "", Logit:
		return Logit, nil
	}
	return "", errors.Errorf("Unsupported GLM link %q (only logit is available)", name)
}

// FitOptions controls IRLS
type FitOptions struct {
	MaxIter int
	Tol     float64
}

// DefaultFitOptions are the IRLS settings used by the chain
func DefaultFitOptions() FitOptions {
	return FitOptions{MaxIter: 50, Tol: 1e-8}
}

// Fit is the result of a binomial GLM fit
type Fit struct {
	Coef       []float64
	Info       *mat.SymDense // X'WX at Coef (observed = expected information)
	Iterations int
	Converged  bool
}

// Finite is false when the fit failed: no convergence, overflow or a
// singular information matrix all leave NaN coefficients.
func (f *Fit) Finite() bool {
	for _, c := range f.Coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (f *Fit) fail() *Fit {
	for i := range f.Coef {
		f.Coef[i] = math.NaN()
	}
	f.Converged = false
	return f
}

func logistic(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// FitBinomial fits a logistic regression of y (proportions in [0, 1]) on X
// with prior weights w by Newton/IRLS from zero. A failed fit is not an
// error: it is reported through Fit.Finite so callers may fall back.
func FitBinomial(X *mat.Dense, y, w []float64, opts FitOptions) (*Fit, error) {
	n, p := X.Dims()
	if len(y) != n || len(w) != n {
		return nil, errors.Errorf("GLM dimension mismatch: X has %d rows, y %d, w %d", n, len(y), len(w))
	}

	fit := &Fit{Coef: make([]float64, p), Info: mat.NewSymDense(p, nil)}
	beta := mat.NewVecDense(p, fit.Coef)

	eta := mat.NewVecDense(n, nil)
	score := mat.NewVecDense(p, nil)
	resid := mat.NewVecDense(n, nil)
	xw := mat.NewDense(n, p, nil)
	var step mat.VecDense
	var chol mat.Cholesky

	computeInfo := func() {
		eta.MulVec(X, beta)
		for i := 0; i < n; i++ {
			mu := logistic(eta.AtVec(i))
			resid.SetVec(i, w[i]*(y[i]-mu))
			wi := w[i] * mu * (1 - mu)
			for j := 0; j < p; j++ {
				xw.Set(i, j, wi*X.At(i, j))
			}
		}
		// Info = X' W X, symmetric by construction
		var info mat.Dense
		info.Mul(X.T(), xw)
		for a := 0; a < p; a++ {
			for b := a; b < p; b++ {
				fit.Info.SetSym(a, b, info.At(a, b))
			}
		}
		score.MulVec(X.T(), resid)
	}

	for it := 1; it <= opts.MaxIter; it++ {
		computeInfo()
		fit.Iterations = it

		if ok := chol.Factorize(fit.Info); !ok {
			return fit.fail(), nil
		}
		if err := chol.SolveVecTo(&step, score); err != nil {
			return fit.fail(), nil
		}
		beta.AddVec(beta, &step)

		if !fit.Finite() {
			return fit.fail(), nil
		}

		size := math.Max(floats.Norm(fit.Coef, math.Inf(1)), opts.Tol)
		if floats.Norm(step.RawVector().Data, math.Inf(1)) <= opts.Tol*size {
			fit.Converged = true
			break
		}
	}

	if !fit.Converged {
		return fit.fail(), nil
	}

	// Information at the final coefficients
	computeInfo()
	if ok := chol.Factorize(fit.Info); !ok {
		return fit.fail(), nil
	}
	return fit, nil
}

// LogLik is the weighted binomial log likelihood of coefficients b
func LogLik(X *mat.Dense, y, w, b []float64) float64 {
	n, _ := X.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(X, mat.NewVecDense(len(b), b))

	ll := 0.0
	for i := 0; i < n; i++ {
		z := eta.AtVec(i)
		// log(mu) = -softplus(-z), log(1-mu) = -softplus(z)
		ll -= w[i] * (y[i]*softplus(-z) + (1-y[i])*softplus(z))
	}
	return ll
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
