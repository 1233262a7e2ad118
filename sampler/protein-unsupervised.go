package sampler

import (
	"github.com/CraigKelly/quantmc/updates"
)

// UnsupervisedUpdate draws free protein means from their normal full
// conditional
type UnsupervisedUpdate struct{}

// Name of the strategy
func (UnsupervisedUpdate) Name() string { return "unsupervised" }

// Init keeps the data-driven starting means
func (UnsupervisedUpdate) Init(c *Chain, s *State) error { return nil }

// Update draws next.Mu
func (UnsupervisedUpdate) Update(c *Chain, prev, next *State, gammaBar []float64) error {
	next.Mu = updates.Mu(c.gen, gammaBar, prev.Tausq, c.Tab.PeptidesPerProtein, c.Config.Priors.Mu)
	return nil
}
