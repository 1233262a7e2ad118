package censor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/quantmc/density"
	"github.com/CraigKelly/quantmc/numeric"
	"github.com/CraigKelly/quantmc/rand"
)

// Imputed holds one entry per censored state, grouped by peptide in peptide
// order.
type Imputed struct {
	Intensities []float64
	Peptides    []int
	Random      []bool // true: randomly censored, false: intensity-based
}

// RandomCount is the number of randomly censored states
func (im *Imputed) RandomCount() int {
	c := 0
	for _, w := range im.Random {
		if w {
			c++
		}
	}
	return c
}

// IntensityRequest is everything needed to impute censored states
type IntensityRequest struct {
	NCen    []int     // Censored states per peptide
	Mu      []float64 // Peptide means
	Sigmasq []float64 // Peptide state-level variances
	Eta0    []float64 // Effective censoring intercepts
	Eta1    []float64 // Effective censoring slopes
	PRndCen float64
	Dist    *CensoredDist
	PropDf  float64 // Degrees of freedom of the t proposal
}

// SampleIntensities draws the censoring type and log-intensity of every
// censored state. A state is randomly censored with probability
// pRnd / (pRnd + (1-pRnd) pInt); its intensity is then a plain normal draw.
// Intensity-censored states are drawn from the censored density by rejection
// from a Student-t centered at the approximate mode with the approximate SD.
// The acceptance weight is the density ratio target/proposal over its exact
// maximum (see tWeight.bound).
func SampleIntensities(gen *rand.Generator, req *IntensityRequest) (*Imputed, error) {
	m := len(req.NCen)
	if len(req.Mu) != m || len(req.Sigmasq) != m || len(req.Eta0) != m || len(req.Eta1) != m {
		return nil, errors.Errorf("Intensity request length mismatch for %d peptides", m)
	}
	if req.Dist == nil || len(req.Dist.YHat) != m {
		return nil, errors.Errorf("Censored distribution summary missing or wrong size")
	}

	total := 0
	for _, n := range req.NCen {
		total += n
	}

	im := &Imputed{
		Intensities: make([]float64, 0, total),
		Peptides:    make([]int, 0, total),
		Random:      make([]bool, 0, total),
	}

	for i, n := range req.NCen {
		if n < 1 {
			continue
		}

		pInt := req.Dist.PIntCen[i]
		denom := req.PRndCen + (1-req.PRndCen)*pInt
		pRandom := 1.0
		if denom > 0 {
			pRandom = req.PRndCen / denom
		}

		w := &tWeight{
			mu:      req.Mu[i],
			sigmasq: req.Sigmasq[i],
			eta0:    req.Eta0[i],
			eta1:    req.Eta1[i],
			prop: distuv.StudentsT{
				Mu:    req.Dist.YHat[i],
				Sigma: req.Dist.ApproxSD[i],
				Nu:    req.PropDf,
				Src:   gen,
			},
		}
		logBound := math.NaN() // computed on the first intensity-censored state
		sd := math.Sqrt(req.Sigmasq[i])

		for s := 0; s < n; s++ {
			random := gen.Float64() < pRandom

			var y float64
			if random {
				y = req.Mu[i] + sd*gen.NormFloat64()
			} else {
				var err error
				if math.IsNaN(logBound) {
					if logBound, err = w.bound(); err != nil {
						return nil, errors.Wrapf(err, "Bounding censored density ratio for peptide %d", i)
					}
				}
				y, err = rejectT(gen, w, logBound)
				if err != nil {
					return nil, errors.Wrapf(err, "Imputing censored state for peptide %d", i)
				}
			}

			im.Intensities = append(im.Intensities, y)
			im.Peptides = append(im.Peptides, i)
			im.Random = append(im.Random, random)
		}
	}

	return im, nil
}

// tWeight is the log density ratio of one peptide's censored density to its
// t proposal.
type tWeight struct {
	mu, sigmasq, eta0, eta1 float64
	prop                    distuv.StudentsT
}

func (w *tWeight) log(y float64) float64 {
	return density.LogDensityCensored(y, w.mu, w.sigmasq, w.eta0, w.eta1) - w.prop.LogProb(y)
}

func (w *tWeight) slope(y float64) float64 {
	u := y - w.prop.Mu
	nu, s := w.prop.Nu, w.prop.Sigma
	return density.Deriv1LogDensityCensored(y, w.mu, w.sigmasq, w.eta0, w.eta1) +
		(nu+1)*u/(nu*s*s+u*u)
}

// Search settings for tWeight.bound
const (
	boundSteps  = 32   // grid steps per side of the inner region
	boundIter   = 200  // bisection iterations
	boundTol    = 1e-9 // bisection tolerance, in proposal scales
	boundMargin = 1e-6
)

// bound is the maximum of the log weight. The t log density is concave for
// |y - center| > a = scale*sqrt(df) and the censored log density is concave
// everywhere, so outside [center-a, center+a] the log weight has at most one
// maximum per side. Its slope is negative past mu + W and positive before
// mu - W, with W = sigmasq*(|eta1| + (df+1)/(2a)). The inner region is
// scanned on a grid; every + to - sign change of the slope, and each outer
// side whose slope still points outward at the edge, is refined by
// bisection. The mode is a local minimum of the weight whenever the
// approximate SD matches the curvature there.
func (w *tWeight) bound() (float64, error) {
	c, s, nu := w.prop.Mu, w.prop.Sigma, w.prop.Nu
	a := s * math.Sqrt(nu)
	reach := w.sigmasq*(math.Abs(w.eta1)+(nu+1)/(2*a)) + s

	var lower, upper []float64
	best := math.Inf(-1)

	prevY, prevD := 0.0, 0.0
	for j := -boundSteps; j <= boundSteps; j++ {
		y := c + a*float64(j)/boundSteps
		best = math.Max(best, w.log(y))
		d := w.slope(y)
		if j > -boundSteps && prevD > 0 && d <= 0 {
			lower = append(lower, prevY)
			upper = append(upper, y)
		}
		prevY, prevD = y, d
	}

	if w.slope(c+a) > 0 {
		lower = append(lower, c+a)
		upper = append(upper, math.Max(c+a, w.mu+reach))
	}
	if w.slope(c-a) < 0 {
		lower = append(lower, math.Min(c-a, w.mu-reach))
		upper = append(upper, c-a)
	}

	if len(lower) > 0 {
		res, err := numeric.Bisect(numeric.Func(w.slope), lower, upper, boundTol*s, boundIter)
		if err != nil {
			return 0, err
		}
		for _, y := range res.X {
			best = math.Max(best, w.log(y))
		}
	}

	if math.IsNaN(best) || math.IsInf(best, 0) {
		return 0, errors.Errorf("Censored density ratio has no finite maximum (center %g, scale %g)", c, s)
	}
	return best + boundMargin, nil
}

func rejectT(gen *rand.Generator, w *tWeight, logBound float64) (float64, error) {
	for round := 0; round < MaxRejectionRounds; round++ {
		y := w.prop.Rand()
		if math.Log(gen.Float64()) < w.log(y)-logBound {
			return y, nil
		}
	}
	return 0, &RejectionLimitError{Sampler: "Censored intensity", Pending: 1, Rounds: MaxRejectionRounds}
}
