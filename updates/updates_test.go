package updates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/quantmc/rand"
)

func newGen(t *testing.T, seed int64) *rand.Generator {
	gen, err := rand.NewGenerator(seed)
	require.NoError(t, err)
	return gen
}

func TestPRndCen(t *testing.T) {
	assert := assert.New(t)
	gen := newGen(t, 1)

	draws := make([]float64, 20000)
	for i := range draws {
		draws[i] = PRndCen(gen, 30, 100, BetaPrior{A: 1, B: 1})
		assert.True(draws[i] > 0 && draws[i] < 1)
	}
	assert.InDelta(31.0/102.0, stat.Mean(draws, nil), 0.005)
}

func TestGammaAndMu(t *testing.T) {
	assert := assert.New(t)
	gen := newGen(t, 2)

	const reps = 20000
	g := make([]float64, reps)
	m := make([]float64, reps)
	for i := 0; i < reps; i++ {
		g[i] = Gamma(gen, []float64{10}, []float64{1}, []float64{0.5}, []float64{12}, []int{4})[0]
		m[i] = Mu(gen, []float64{7}, []float64{2}, []int{3}, NormalPrior{Mean: 0, Prec: 0.5})[0]
	}

	// precision 1 + 8 = 9, mean (10 + 96) / 9
	mean, sd := stat.MeanStdDev(g, nil)
	assert.InDelta(106.0/9.0, mean, 0.01)
	assert.InDelta(1.0/3.0, sd, 0.01)

	// precision 0.5 + 1.5 = 2, mean (0 + 10.5) / 2
	mean, sd = stat.MeanStdDev(m, nil)
	assert.InDelta(5.25, mean, 0.02)
	assert.InDelta(math.Sqrt(0.5), sd, 0.01)
}

func TestVariances(t *testing.T) {
	assert := assert.New(t)
	gen := newGen(t, 3)

	const reps = 20000
	prec := make([]float64, reps)
	for i := range prec {
		v := Variances(gen, []float64{8}, []float64{10}, 2, 1)
		prec[i] = 1 / v[0]
	}
	// Gamma(2 + 5, 1 + 4): mean 7/5
	assert.InDelta(1.4, stat.Mean(prec, nil), 0.02)
}

func TestBetaRegression(t *testing.T) {
	assert := assert.New(t)
	gen := newGen(t, 4)

	conc := []float64{0, 1, 2, 3, 4, 5}
	gammaBar := make([]float64, len(conc))
	tausq := make([]float64, len(conc))
	nPep := make([]int, len(conc))
	for k, c := range conc {
		gammaBar[k] = 1.5 + 2*c
		tausq[k] = 1e-6
		nPep[k] = 2
	}

	flat := RegressionPrior{}
	b, err := Beta(gen, conc, gammaBar, tausq, nPep, flat)
	require.NoError(t, err)
	assert.InDelta(1.5, b[0], 0.01)
	assert.InDelta(2.0, b[1], 0.01)

	_, err = Beta(gen, conc[:2], gammaBar, tausq, nPep, flat)
	assert.Error(err)

	// One point and a flat prior can not identify a line
	_, err = Beta(gen, []float64{1}, []float64{1}, []float64{1}, []int{1}, flat)
	assert.Error(err)

	cs := Concentrations(gen, gammaBar, tausq, nPep, [2]float64{1.5, 2}, 0, 0)
	assert.InDeltaSlice(conc, cs, 0.01)
}

func TestVarianceHyperparams(t *testing.T) {
	assert := assert.New(t)
	gen := newGen(t, 5)

	// Variances from an inverse-gamma(3, 2)
	const k = 1000
	g := distuv.Gamma{Alpha: 3, Beta: 2, Src: gen}
	variances := make([]float64, k)
	for i := range variances {
		variances[i] = 1 / g.Rand()
	}

	prior := VarianceHyperPrior{ShapeMeanLog: 0, ShapePrecLog: 0.01, RateShape: 1, RateRate: 0, StepSD: 0.1}
	shape, rate := 1.0, 1.0
	var shapes, rates []float64
	acc := 0
	for it := 0; it < 4000; it++ {
		var ok bool
		shape, rate, ok = VarianceHyperparams(gen, variances, shape, rate, prior)
		if ok {
			acc++
		}
		if it >= 1000 {
			shapes = append(shapes, shape)
			rates = append(rates, rate)
		}
	}

	assert.InEpsilon(3.0, stat.Mean(shapes, nil), 0.2)
	assert.InEpsilon(2.0, stat.Mean(rates, nil), 0.2)
	assert.True(acc > 100 && acc < 4000, "accepted %d", acc)
}

func TestNBinomHyperparams(t *testing.T) {
	assert := assert.New(t)
	gen := newGen(t, 6)

	// Draws from NB(2, 0.4) via gamma-poisson
	const n = 2000
	x := make([]int, n)
	for i := range x {
		lam := distuv.Gamma{Alpha: 2, Beta: 0.4 / 0.6, Src: gen}.Rand()
		x[i] = int(distuv.Poisson{Lambda: lam, Src: gen}.Rand())
	}

	prior := NBinomPrior{RShape: 1, RRate: 0.1, LambdaA: 1, LambdaB: 1, StepSD: 0.1}
	r, lambda := StartNBinom(x, prior)
	assert.InEpsilon(2.0, r, 0.3)
	assert.InEpsilon(0.4, lambda, 0.2)

	var rs, ls []float64
	for it := 0; it < 3000; it++ {
		r, lambda, _ = NBinomHyperparams(gen, x, r, lambda, prior)
		if it >= 500 {
			rs = append(rs, r)
			ls = append(ls, lambda)
		}
	}
	assert.InEpsilon(2.0, stat.Mean(rs, nil), 0.2)
	assert.InEpsilon(0.4, stat.Mean(ls, nil), 0.1)
}

func TestStartNBinomFallback(t *testing.T) {
	assert := assert.New(t)

	// Under-dispersed: r from the prior, lambda matches the mean
	r, lambda := StartNBinom([]int{2, 2, 2, 2}, NBinomPrior{RShape: 4, RRate: 2})
	assert.Equal(2.0, r)
	assert.InDelta(0.5, lambda, 1e-12)

	r, lambda = StartNBinom([]int{0, 0, 0}, NBinomPrior{})
	assert.Equal(1.0, r)
	assert.True(lambda < 1 && lambda > 0)

	r, lambda = StartNBinom(nil, NBinomPrior{})
	assert.Equal(1.0, r)
	assert.Equal(0.5, lambda)
}
