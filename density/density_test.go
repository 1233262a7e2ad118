package density

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CraigKelly/quantmc/rand"
)

func TestNormalLogDensity(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(-0.5*math.Log(2*math.Pi), NormalLogDensity(0, 0, 1), 1e-12)
	assert.InDelta(-0.5*math.Log(2*math.Pi*4)-9.0/8.0, NormalLogDensity(4, 1, 4), 1e-12)

	assert.True(math.IsNaN(NormalLogDensity(1, 0, 0)))
	assert.True(math.IsNaN(NormalLogDensity(1, 0, -2)))
	assert.True(math.IsNaN(LogNormalLogDensity(1, 0, -2)))

	// log-normal is the normal in log(x) with the Jacobian
	x := 3.5
	assert.InDelta(NormalLogDensity(math.Log(x), 1, 2)-math.Log(x), LogNormalLogDensity(x, 1, 2), 1e-12)
}

func TestProbabilitiesComplementary(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(11)
	assert.NoError(err)

	for i := 0; i < 2000; i++ {
		x := 40 * (gen.Float64() - 0.5)
		e0 := 40 * (gen.Float64() - 0.5)
		e1 := 10 * (gen.Float64() - 0.5)
		total := math.Exp(LogProbCensored(x, e0, e1)) + math.Exp(LogProbObserved(x, e0, e1))
		assert.InDelta(1.0, total, 1e-12, "x=%v e0=%v e1=%v", x, e0, e1)
	}

	// No overflow in the tails
	assert.InDelta(-1000.0, LogProbCensored(1000, 0, 1), 1e-9)
	assert.InDelta(0.0, LogProbObserved(1000, 0, 1), 1e-12)
	assert.False(math.IsInf(LogProbObserved(-1000, 0, 1), 0))
}

func TestDensitySumsLog(t *testing.T) {
	assert := assert.New(t)

	x, mu, s2, e0, e1 := 1.3, 2.0, 0.7, -1.0, 0.8
	assert.InDelta(NormalLogDensity(x, mu, s2)+LogProbCensored(x, e0, e1), LogDensityCensored(x, mu, s2, e0, e1), 1e-12)
	assert.InDelta(NormalLogDensity(x, mu, s2)+LogProbObserved(x, e0, e1), LogDensityObserved(x, mu, s2, e0, e1), 1e-12)

	// Censored + observed density is the plain normal density
	total := DensityCensored(x, mu, s2, e0, e1) + math.Exp(LogDensityObserved(x, mu, s2, e0, e1))
	assert.InEpsilon(math.Exp(NormalLogDensity(x, mu, s2)), total, 1e-12)
}

func closeRel(assert *assert.Assertions, exp, act float64, msg string) {
	tol := 1e-4 * math.Max(1.0, math.Abs(exp))
	assert.InDelta(exp, act, tol, msg)
}

func TestDerivativesFiniteDifference(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(5)
	assert.NoError(err)

	const h = 1e-4
	for i := 0; i < 500; i++ {
		x := 10 * (gen.Float64() - 0.5)
		mu := 10 * (gen.Float64() - 0.5)
		s2 := 0.1 + 3*gen.Float64()
		e0 := 10 * (gen.Float64() - 0.5)
		e1 := 4 * (gen.Float64() - 0.5)

		fd1 := (LogDensityCensored(x+h, mu, s2, e0, e1) - LogDensityCensored(x-h, mu, s2, e0, e1)) / (2 * h)
		fd2 := (Deriv1LogDensityCensored(x+h, mu, s2, e0, e1) - Deriv1LogDensityCensored(x-h, mu, s2, e0, e1)) / (2 * h)
		fd3 := (Deriv2LogDensityCensored(x+h, mu, s2, e0, e1) - Deriv2LogDensityCensored(x-h, mu, s2, e0, e1)) / (2 * h)

		closeRel(assert, fd1, Deriv1LogDensityCensored(x, mu, s2, e0, e1), "first")
		closeRel(assert, fd2, Deriv2LogDensityCensored(x, mu, s2, e0, e1), "second")
		closeRel(assert, fd3, Deriv3LogDensityCensored(x, mu, s2, e0, e1), "third")
	}
}

func TestVectorized(t *testing.T) {
	assert := assert.New(t)

	p, err := NewCensoredParams(
		[]float64{0, 1, 2},
		[]float64{1, 2, 3},
		[]float64{-1, 0, 1},
		[]float64{0.5, 1, 1.5},
	)
	assert.NoError(err)
	assert.Equal(3, p.Len())

	x := []float64{0.5, 0.5, 0.5}
	dst := make([]float64, 3)

	p.Deriv1().Evaluate(dst, x)
	for i := range x {
		assert.Equal(Deriv1LogDensityCensored(x[i], p.Mean[i], p.Variance[i], p.Eta0[i], p.Eta1[i]), dst[i])
	}

	sub := p.Slice(1, 3)
	sdst := make([]float64, 2)
	sub.LogDensity().Evaluate(sdst, x[:2])
	assert.Equal(LogDensityCensored(0.5, 1, 2, 0, 1), sdst[0])

	_, err = NewCensoredParams([]float64{0}, []float64{1, 2}, []float64{0}, []float64{0})
	assert.Error(err)

	LogProbCensoredVec(dst, x, p.Eta0, p.Eta1)
	obs := make([]float64, 3)
	LogProbObservedVec(obs, x, p.Eta0, p.Eta1)
	for i := range dst {
		assert.InDelta(1.0, math.Exp(dst[i])+math.Exp(obs[i]), 1e-12)
	}
}
