package sampler

// State is the full parameter vector at one iteration. Each iteration builds
// a new State from the previous one.
type State struct {
	Gamma   []float64 // Peptide means
	Mu      []float64 // Protein means
	Sigmasq []float64 // Protein state-level variances
	Tausq   []float64 // Protein peptide-level variances

	ShapeSigmasq, RateSigmasq float64
	ShapeTausq, RateTausq     float64

	// Censoring model: intercept, slope, then feature main effects and
	// feature-by-intensity interactions
	Eta     []float64
	PRndCen float64

	// State count law NB(R, Lambda) of states per peptide - 1
	R, Lambda float64
	NCen      []int

	// Supervised only
	Beta              [2]float64
	Concentration     []float64
	MeanConcentration float64
	PrecConcentration float64
}

// effectiveEta gives the effective per-peptide censoring intercept and slope
func (s *State) effectiveEta(features [][]float64, nPeptides int) (eta0, eta1 []float64) {
	eta0 = make([]float64, nPeptides)
	eta1 = make([]float64, nPeptides)
	nf := (len(s.Eta) - 2) / 2

	for i := range eta0 {
		eta0[i], eta1[i] = s.Eta[0], s.Eta[1]
		for j := 0; j < nf; j++ {
			eta0[i] += features[i][j] * s.Eta[2+j]
			eta1[i] += features[i][j] * s.Eta[2+nf+j]
		}
	}
	return eta0, eta1
}

// byPeptide broadcasts a per-protein vector to peptides
func byPeptide(perProtein []float64, peptideProtein []int) []float64 {
	out := make([]float64, len(peptideProtein))
	for i, k := range peptideProtein {
		out[i] = perProtein[k]
	}
	return out
}
