package sampler

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/quantmc/censor"
	"github.com/CraigKelly/quantmc/glm"
)

// etaDesign builds the logistic regression behind the eta update. Rows are
// observed states (y = 1), then intensity-censored states (y = 0), then one
// pseudo-observation (y = 0.5) per feature coefficient shrinking it toward
// zero. Randomly censored states carry no information on eta and are left
// out.
func (c *Chain) etaDesign(im *censor.Imputed) (*mat.Dense, []float64, []float64) {
	nf := c.Tab.NFeatures
	features := c.Data.PeptideFeatures

	nAtRisk := len(c.Data.Intensities) + len(im.Intensities) - im.RandomCount()
	rows, cols := nAtRisk+2*nf, 2+2*nf

	X := mat.NewDense(rows, cols, nil)
	y := make([]float64, rows)
	w := make([]float64, rows)

	r := 0
	addState := func(intensity float64, peptide int, observed bool) {
		X.Set(r, 0, 1)
		X.Set(r, 1, intensity)
		for j := 0; j < nf; j++ {
			f := features[peptide][j]
			X.Set(r, 2+j, f)
			X.Set(r, 2+nf+j, f*intensity)
		}
		if observed {
			y[r] = 1
		}
		w[r] = 1
		r++
	}

	for i, v := range c.Data.Intensities {
		addState(v, c.Data.StatePeptide[i], true)
	}
	for j, v := range im.Intensities {
		if !im.Random[j] {
			addState(v, im.Peptides[j], false)
		}
	}

	ef := c.Config.Priors.EtaFeatures
	for j := 0; j < 2*nf; j++ {
		X.Set(r, 2+j, 1)
		y[r] = 0.5
		w[r] = ef.PrimaryPseudoObs
		if j >= nf {
			w[r] = ef.InteractionPseudoObs
		}
		r++
	}

	return X, y, w
}

// updateEta fits the censoring model to the completed data and runs an MH
// step from it. A failed fit keeps the previous eta: the chain goes on and
// the outcome is not counted.
func (c *Chain) updateEta(t int, prev *State, im *censor.Imputed) []float64 {
	keep := func(reason string, fields ...zap.Field) []float64 {
		c.log.Warn("Keeping previous eta", append([]zap.Field{zap.Int("iteration", t), zap.String("reason", reason)}, fields...)...)
		out := make([]float64, len(prev.Eta))
		copy(out, prev.Eta)
		return out
	}

	X, y, w := c.etaDesign(im)
	fit, err := glm.FitBinomial(X, y, w, c.FitOptions)
	if err != nil {
		return keep("fit error", zap.Error(err))
	}
	if !fit.Finite() {
		return keep("non-finite fit", zap.Int("glm_iterations", fit.Iterations))
	}

	eta, accepted, err := glm.MHUpdate(c.gen, prev.Eta, fit, X, y, w, c.Config.Settings.PropDfEta, c.etaPrior)
	if err != nil {
		return keep("proposal error", zap.Error(err))
	}

	tally(&c.accept.Eta, c.recent.eta, accepted)
	return eta
}
