// Package model holds the inputs of a chain: the observed data with its
// peptide/protein mappings, the YAML configuration, and summaries of the
// resulting draws.
package model

import (
	"math"
)

// Dataset is the observed data for a chain. States map to peptides and
// peptides to proteins; both mappings are immutable for the chain's life.
type Dataset struct {
	Intensities    []float64 // Observed log-intensity per observed state
	StatePeptide   []int     // Peptide of each observed state
	PeptideProtein []int     // Protein of each peptide (observed or not)

	// Supervised mode only
	KnownConcentrations []float64
	KnownProteins       []int // Protein of each known concentration

	PeptideFeatures [][]float64 // Optional n_peptides x n_features
}

// NPeptides is the peptide count
func (d *Dataset) NPeptides() int {
	return len(d.PeptideProtein)
}

// NProteins is 1 + the largest protein index
func (d *Dataset) NProteins() int {
	max := -1
	for _, p := range d.PeptideProtein {
		if p > max {
			max = p
		}
	}
	return max + 1
}

// NFeatures is the width of the peptide feature matrix
func (d *Dataset) NFeatures() int {
	if len(d.PeptideFeatures) < 1 {
		return 0
	}
	return len(d.PeptideFeatures[0])
}

// Check returns a *ValidationError if the data can not drive a chain
func (d *Dataset) Check(supervised bool) error {
	nPep := d.NPeptides()
	if nPep < 1 {
		return invalidf("mapping_peptides", "no peptides")
	}
	if len(d.Intensities) < 1 {
		return invalidf("intensities_obs", "no observed states")
	}
	if len(d.Intensities) != len(d.StatePeptide) {
		return invalidf("mapping_states_obs", "%d entries for %d intensities",
			len(d.StatePeptide), len(d.Intensities))
	}

	for i, y := range d.Intensities {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return invalidf("intensities_obs", "entry %d is not finite (%v)", i, y)
		}
	}

	for i, p := range d.StatePeptide {
		if p < 0 || p >= nPep {
			return invalidf("mapping_states_obs", "entry %d is %d, outside [0, %d)", i, p, nPep)
		}
	}

	for i, p := range d.PeptideProtein {
		if p < 0 || p >= nPep {
			return invalidf("mapping_peptides", "entry %d is %d, outside [0, %d)", i, p, nPep)
		}
	}

	nProt := d.NProteins()
	seen := make([]bool, nProt)
	for _, p := range d.PeptideProtein {
		seen[p] = true
	}
	for k, ok := range seen {
		if !ok {
			return invalidf("mapping_peptides", "protein %d has no peptides", k)
		}
	}

	if nf := d.NFeatures(); nf > 0 {
		if len(d.PeptideFeatures) != nPep {
			return invalidf("peptide_features", "%d rows for %d peptides", len(d.PeptideFeatures), nPep)
		}
		for i, row := range d.PeptideFeatures {
			if len(row) != nf {
				return invalidf("peptide_features", "row %d has %d features, expected %d", i, len(row), nf)
			}
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return invalidf("peptide_features", "row %d is not finite", i)
				}
			}
		}
	}

	if !supervised {
		return nil
	}

	if len(d.KnownConcentrations) < 2 {
		return invalidf("known_concentrations", "supervised mode needs at least 2, got %d", len(d.KnownConcentrations))
	}
	if len(d.KnownConcentrations) != len(d.KnownProteins) {
		return invalidf("mapping_known_concentrations", "%d entries for %d concentrations",
			len(d.KnownProteins), len(d.KnownConcentrations))
	}
	distinct := false
	for i, k := range d.KnownProteins {
		if k < 0 || k >= nProt {
			return invalidf("mapping_known_concentrations", "entry %d is %d, outside [0, %d)", i, k, nProt)
		}
		if d.KnownConcentrations[i] != d.KnownConcentrations[0] {
			distinct = true
		}
	}
	if !distinct {
		return invalidf("known_concentrations", "all known concentrations are equal")
	}

	return nil
}

// Tabulation holds the counts that stay fixed across iterations
type Tabulation struct {
	NPeptides  int
	NProteins  int
	NObsStates int
	NFeatures  int

	ObsStatesPerPeptide    []int
	ObsIntensityPerPeptide []float64
	PeptidesPerProtein     []int
	ObsPeptidesPerProtein  []int
	StateProtein           []int // Protein of each observed state
}

// Tabulate computes the iteration-invariant counts. Call Check first.
func (d *Dataset) Tabulate() *Tabulation {
	nPep, nProt := d.NPeptides(), d.NProteins()
	t := &Tabulation{
		NPeptides:              nPep,
		NProteins:              nProt,
		NObsStates:             len(d.Intensities),
		NFeatures:              d.NFeatures(),
		ObsStatesPerPeptide:    make([]int, nPep),
		ObsIntensityPerPeptide: make([]float64, nPep),
		PeptidesPerProtein:     make([]int, nProt),
		ObsPeptidesPerProtein:  make([]int, nProt),
		StateProtein:           make([]int, len(d.Intensities)),
	}

	for i, p := range d.StatePeptide {
		t.ObsStatesPerPeptide[p]++
		t.ObsIntensityPerPeptide[p] += d.Intensities[i]
		t.StateProtein[i] = d.PeptideProtein[p]
	}

	for i, k := range d.PeptideProtein {
		t.PeptidesPerProtein[k]++
		if t.ObsStatesPerPeptide[i] > 0 {
			t.ObsPeptidesPerProtein[k]++
		}
	}

	return t
}
