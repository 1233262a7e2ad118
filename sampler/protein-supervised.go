package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/quantmc/updates"
)

// SupervisedFlatUpdate ties protein means to concentrations through
// mu = beta0 + beta1 * concentration with a flat prior on unknown
// concentrations. beta is drawn from the known proteins only, which
// integrates the unknown concentrations out (the slope prior is implicitly
// scaled by |beta1|^n_unknown).
type SupervisedFlatUpdate struct{}

// Name of the strategy
func (SupervisedFlatUpdate) Name() string { return "supervised-flat" }

// Init fits beta by least squares of the starting means on the known
// concentrations
func (SupervisedFlatUpdate) Init(c *Chain, s *State) error {
	return initSupervised(c, s)
}

// Update draws beta, then the concentrations, then sets next.Mu
func (SupervisedFlatUpdate) Update(c *Chain, prev, next *State, gammaBar []float64) error {
	known := c.Data.KnownProteins
	beta, err := updates.Beta(
		c.gen, c.Data.KnownConcentrations,
		pick(gammaBar, known), pick(prev.Tausq, known), pickInt(c.Tab.PeptidesPerProtein, known),
		c.Config.Priors.BetaConcentration,
	)
	if err != nil {
		return err
	}

	drawConcentrations(c, prev, next, gammaBar, beta, 0, 0)
	return nil
}

// SupervisedHierarchicalUpdate gives concentrations a normal distribution
// whose mean and precision are updated every iteration. beta is drawn given
// all current concentrations.
type SupervisedHierarchicalUpdate struct{}

// Name of the strategy
func (SupervisedHierarchicalUpdate) Name() string { return "supervised-hierarchical" }

// Init is SupervisedFlatUpdate.Init plus the sample mean and precision of
// the starting concentrations
func (SupervisedHierarchicalUpdate) Init(c *Chain, s *State) error {
	if err := initSupervised(c, s); err != nil {
		return err
	}

	mean, variance := stat.PopMeanVariance(s.Concentration, nil)
	if !(variance > 0) {
		return errors.New("Starting concentrations have no spread")
	}
	s.MeanConcentration = mean
	s.PrecConcentration = 1 / variance
	return nil
}

// Update draws beta, the concentrations, then their mean and precision
func (SupervisedHierarchicalUpdate) Update(c *Chain, prev, next *State, gammaBar []float64) error {
	beta, err := updates.Beta(
		c.gen, prev.Concentration, gammaBar, prev.Tausq, c.Tab.PeptidesPerProtein,
		c.Config.Priors.BetaConcentration,
	)
	if err != nil {
		return err
	}

	drawConcentrations(c, prev, next, gammaBar, beta, prev.MeanConcentration, prev.PrecConcentration)

	n := float64(len(next.Concentration))
	next.MeanConcentration = stat.Mean(next.Concentration, nil) +
		c.gen.NormFloat64()*math.Sqrt(1/prev.PrecConcentration/n)

	rss := 0.0
	for _, x := range next.Concentration {
		d := x - next.MeanConcentration
		rss += d * d
	}
	prior := c.Config.Priors.PrecConcentration
	next.PrecConcentration = 1 / updates.Variances(c.gen, []float64{rss}, []float64{n}, prior.Shape, prior.Rate)[0]
	return nil
}

func initSupervised(c *Chain, s *State) error {
	known := c.Data.KnownProteins
	conc := c.Data.KnownConcentrations

	b0, b1 := stat.LinearRegression(conc, pick(s.Mu, known), nil, false)
	if b1 == 0 || math.IsNaN(b1) || math.IsInf(b1, 0) {
		return errors.Errorf("Starting regression of means on known concentrations has slope %v", b1)
	}
	s.Beta = [2]float64{b0, b1}

	for j, k := range known {
		s.Mu[k] = b0 + b1*conc[j]
	}
	s.Concentration = make([]float64, len(s.Mu))
	for k, mu := range s.Mu {
		s.Concentration[k] = (mu - b0) / b1
	}
	for j, k := range known {
		s.Concentration[k] = conc[j]
	}
	return nil
}

// drawConcentrations sets next.Beta and next.Concentration (known ones held
// fixed) and next.Mu from them
func drawConcentrations(c *Chain, prev, next *State, gammaBar []float64, beta [2]float64, mean, prec float64) {
	next.Beta = beta
	next.Concentration = updates.Concentrations(
		c.gen, gammaBar, prev.Tausq, c.Tab.PeptidesPerProtein, beta, mean, prec)
	for j, k := range c.Data.KnownProteins {
		next.Concentration[k] = c.Data.KnownConcentrations[j]
	}

	next.Mu = make([]float64, len(next.Concentration))
	for k, x := range next.Concentration {
		next.Mu[k] = beta[0] + beta[1]*x
	}
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = v[i]
	}
	return out
}

func pickInt(v []int, idx []int) []int {
	out := make([]int, len(idx))
	for j, i := range idx {
		out[j] = v[i]
	}
	return out
}
