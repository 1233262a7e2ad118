package censor

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/quantmc/rand"
)

// chiSquarePValue bins draws into 0..maxK-1 plus a tail bin and compares them
// to the pmf.
func chiSquarePValue(draws []int, pmf func(k int) float64, maxK int) float64 {
	obs := make([]float64, maxK+1)
	exp := make([]float64, maxK+1)
	for _, k := range draws {
		if k >= maxK {
			obs[maxK]++
		} else {
			obs[k]++
		}
	}

	n := float64(len(draws))
	tail := 1.0
	for k := 0; k < maxK; k++ {
		p := pmf(k)
		exp[k] = n * p
		tail -= p
	}
	exp[maxK] = n * tail

	cs := stat.ChiSquare(obs, exp)
	return 1 - distuv.ChiSquared{K: float64(maxK)}.CDF(cs)
}

func nbinomPMF(n, p float64) func(int) float64 {
	return func(k int) float64 {
		kf := float64(k)
		a, _ := math.Lgamma(kf + n)
		b, _ := math.Lgamma(n)
		c, _ := math.Lgamma(kf + 1)
		return math.Exp(a - b - c + n*math.Log(p) + kf*math.Log(1-p))
	}
}

func TestSampleCountsNoObserved(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	require.NoError(t, err)

	nObs := make([]int, 500)
	pInt := fill(500, 0.4)
	for rep := 0; rep < 5; rep++ {
		nCen, err := SampleCounts(gen, nObs, 0.2, pInt, 0.7, 0.3)
		require.NoError(t, err)
		for _, k := range nCen {
			assert.True(k >= 1)
		}
	}
}

func TestSampleCountsRIsOne(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(1234)
	require.NoError(t, err)

	const reps = 20000
	pRnd, pInt, lambda := 0.3, 0.2, 0.5
	pGeom := 1 - (1-lambda)*(pRnd+(1-pRnd)*pInt)

	nObs := []int{2, 0}
	observed := make([]int, 0, reps)
	unobserved := make([]int, 0, reps)
	for i := 0; i < reps; i++ {
		nCen, err := SampleCounts(gen, nObs, pRnd, []float64{pInt, pInt}, 1, lambda)
		require.NoError(t, err)
		observed = append(observed, nCen[0])
		unobserved = append(unobserved, nCen[1]-1)
	}

	// r = 1: every proposal is accepted, so draws are NB(nObs + 1, pGeom)
	assert.True(chiSquarePValue(observed, nbinomPMF(3, pGeom), 5) > 1e-3)
	// nObs = 0: geometric plus the forced extra state
	assert.True(chiSquarePValue(unobserved, nbinomPMF(1, pGeom), 5) > 1e-3)
}

func TestSampleCountsSmallR(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(99)
	require.NoError(t, err)

	const reps = 20000
	n, r, lambda, c := 1.0, 0.4, 0.2, 0.6
	q := (1 - lambda) * c

	// Unnormalized target law of the censored count
	logTarget := func(k float64) float64 {
		a, _ := math.Lgamma(k + n + r - 1)
		b, _ := math.Lgamma(k + n)
		d, _ := math.Lgamma(k + n + 1)
		e, _ := math.Lgamma(k + 1)
		return a - b + d - e + k*math.Log(q)
	}
	norm := 0.0
	for k := 0; k < 500; k++ {
		norm += math.Exp(logTarget(float64(k)))
	}
	pmf := func(k int) float64 { return math.Exp(logTarget(float64(k))) / norm }

	draws := make([]int, 0, reps)
	for i := 0; i < reps; i++ {
		nCen, err := SampleCounts(gen, []int{1}, c, []float64{0}, r, lambda)
		require.NoError(t, err)
		draws = append(draws, nCen[0])
	}

	assert.True(chiSquarePValue(draws, pmf, 6) > 1e-3)
}

func TestSampleCountsBadInput(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(3)
	require.NoError(t, err)

	_, err = SampleCounts(gen, []int{1, 2}, 0.1, []float64{0.1}, 1, 0.5)
	assert.Error(err)
	_, err = SampleCounts(gen, []int{1}, 0.1, []float64{0.1}, 0, 0.5)
	assert.Error(err)
	_, err = SampleCounts(gen, []int{1}, 0.1, []float64{0.1}, 1, 0)
	assert.Error(err)
}

func TestRejectionLimitError(t *testing.T) {
	assert := assert.New(t)

	var err error = &RejectionLimitError{Sampler: "Test", Pending: 3, Rounds: 10}
	var rle *RejectionLimitError
	assert.True(errors.As(errors.Wrap(err, "outer"), &rle))
	assert.Equal(3, rle.Pending)
	assert.Contains(err.Error(), "10 rounds")
}

func TestNegativeBinomialMoments(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(8)
	require.NoError(t, err)

	n, p := 3.5, 0.4
	sum := 0.0
	const reps = 40000
	for i := 0; i < reps; i++ {
		sum += float64(NegativeBinomial(gen, n, p))
	}
	assert.InEpsilon(n*(1-p)/p, sum/reps, 0.03)
	assert.Equal(0, NegativeBinomial(gen, n, 1))
}
