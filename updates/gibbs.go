package updates

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/quantmc/rand"
)

// PRndCen draws the random censoring probability given the number of
// randomly censored states out of all states.
func PRndCen(gen *rand.Generator, nRndCen, nStates int, prior BetaPrior) float64 {
	return distuv.Beta{
		Alpha: prior.A + float64(nRndCen),
		Beta:  prior.B + float64(nStates-nRndCen),
		Src:   gen,
	}.Rand()
}

// Gamma draws the peptide means given their protein means (mu), variances,
// and the mean intensity over all (observed and imputed) states.
func Gamma(gen *rand.Generator, mu, tausq, sigmasq, yBar []float64, nStates []int) []float64 {
	out := make([]float64, len(mu))
	for i := range out {
		n := float64(nStates[i])
		prec := 1/tausq[i] + n/sigmasq[i]
		mean := (mu[i]/tausq[i] + n*yBar[i]/sigmasq[i]) / prec
		out[i] = mean + gen.NormFloat64()/math.Sqrt(prec)
	}
	return out
}

// Mu draws the protein means given the per-protein average of the peptide
// means.
func Mu(gen *rand.Generator, gammaBar, tausq []float64, nPeptides []int, prior NormalPrior) []float64 {
	out := make([]float64, len(gammaBar))
	for k := range out {
		n := float64(nPeptides[k])
		prec := prior.Prec + n/tausq[k]
		mean := (prior.Mean*prior.Prec + n*gammaBar[k]/tausq[k]) / prec
		out[k] = mean + gen.NormFloat64()/math.Sqrt(prec)
	}
	return out
}

// Variances draws variances from their inverse-gamma full conditional given
// residual sums of squares and counts.
func Variances(gen *rand.Generator, rss, n []float64, shape, rate float64) []float64 {
	out := make([]float64, len(rss))
	for k := range out {
		g := distuv.Gamma{Alpha: shape + n[k]/2, Beta: rate + rss[k]/2, Src: gen}
		out[k] = 1 / g.Rand()
	}
	return out
}

// Beta draws the regression coefficients of protein means on concentrations:
// gammaBar[k] ~ N(beta0 + beta1 conc[k], tausq[k] / nPeptides[k]).
func Beta(gen *rand.Generator, conc, gammaBar, tausq []float64, nPeptides []int, prior RegressionPrior) ([2]float64, error) {
	var out [2]float64
	if len(conc) != len(gammaBar) || len(conc) != len(tausq) || len(conc) != len(nPeptides) {
		return out, errors.Errorf("Regression input length mismatch (%d concentrations)", len(conc))
	}

	// Posterior precision and precision-weighted mean
	p := []float64{prior.Prec[0], 0, 0, prior.Prec[1]}
	rhs := []float64{prior.Prec[0] * prior.Mean[0], prior.Prec[1] * prior.Mean[1]}
	for k, c := range conc {
		w := float64(nPeptides[k]) / tausq[k]
		p[0] += w
		p[1] += w * c
		p[3] += w * c * c
		rhs[0] += w * gammaBar[k]
		rhs[1] += w * c * gammaBar[k]
	}
	p[2] = p[1]

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(2, p)); !ok {
		return out, errors.New("Regression posterior precision is not positive definite")
	}

	var mean mat.VecDense
	if err := chol.SolveVecTo(&mean, mat.NewVecDense(2, rhs)); err != nil {
		return out, errors.Wrap(err, "Solving for regression posterior mean")
	}

	// b = mean + U^-1 z where precision = U'U
	var u mat.TriDense
	chol.UTo(&u)
	z := mat.NewVecDense(2, []float64{gen.NormFloat64(), gen.NormFloat64()})
	var dev mat.VecDense
	if err := dev.SolveVec(&u, z); err != nil {
		return out, errors.Wrap(err, "Drawing regression coefficients")
	}

	out[0] = mean.AtVec(0) + dev.AtVec(0)
	out[1] = mean.AtVec(1) + dev.AtVec(1)
	return out, nil
}

// Concentrations draws latent protein concentrations given the regression
// coefficients, with a normal prior of the given mean and precision (zero
// precision is a flat prior).
func Concentrations(gen *rand.Generator, gammaBar, tausq []float64, nPeptides []int, beta [2]float64, mean, prec float64) []float64 {
	out := make([]float64, len(gammaBar))
	for k := range out {
		w := float64(nPeptides[k]) / tausq[k]
		postPrec := prec + beta[1]*beta[1]*w
		postMean := (prec*mean + beta[1]*w*(gammaBar[k]-beta[0])) / postPrec
		out[k] = postMean + gen.NormFloat64()/math.Sqrt(postPrec)
	}
	return out
}
