// Package sampler drives a single Markov chain over the censored-intensity
// model: it owns the draw arrays, runs every iteration's updates in a fixed
// order, and counts Metropolis-Hastings acceptances.
package sampler

import (
	"fmt"

	"github.com/CraigKelly/quantmc/model"
)

// Status is where a Chain is in its life
type Status int

// Chain statuses. A chain only ever moves forward through these.
const (
	Uninitialized Status = iota
	Initialized
	Iterating
	Done
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Done:
		return "done"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// A ProteinUpdate draws the protein-level means of the next state (and
// whatever they are derived from) given the per-protein average of the new
// peptide means. It is chosen once per chain by NewProteinUpdate.
type ProteinUpdate interface {
	Name() string
	Init(c *Chain, s *State) error
	Update(c *Chain, prev, next *State, gammaBar []float64) error
}

// NewProteinUpdate selects the update strategy for the configuration
func NewProteinUpdate(cfg *model.Config) ProteinUpdate {
	switch {
	case !cfg.Priors.Supervised:
		return UnsupervisedUpdate{}
	case cfg.Priors.ConcentrationDist:
		return SupervisedHierarchicalUpdate{}
	default:
		return SupervisedFlatUpdate{}
	}
}
