package model

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Summary is the posterior summary of one parameter: per-dimension mean,
// standard deviation and central 95% interval over the kept draws.
type Summary struct {
	Name  string
	Kept  int // Draws after burn-in
	Mean  []float64
	SD    []float64
	Lower []float64 // 2.5% quantile
	Upper []float64 // 97.5% quantile
}

// Summarize summarizes an n_iterations x dim draw array, discarding the first
// burnIn rows
func Summarize(name string, draws [][]float64, burnIn int) (*Summary, error) {
	if burnIn < 0 {
		return nil, errors.Errorf("Negative burn-in %d", burnIn)
	}
	if len(draws) <= burnIn {
		return nil, errors.Errorf("Parameter %s has %d draws, none left after burn-in %d", name, len(draws), burnIn)
	}

	kept := draws[burnIn:]
	dim := len(kept[0])
	s := &Summary{
		Name:  name,
		Kept:  len(kept),
		Mean:  make([]float64, dim),
		SD:    make([]float64, dim),
		Lower: make([]float64, dim),
		Upper: make([]float64, dim),
	}

	col := make([]float64, len(kept))
	for j := 0; j < dim; j++ {
		for i, row := range kept {
			if len(row) != dim {
				return nil, errors.Errorf("Parameter %s draw %d has width %d, expected %d", name, burnIn+i, len(row), dim)
			}
			col[i] = row[j]
		}

		if len(col) > 1 {
			s.Mean[j], s.SD[j] = stat.MeanStdDev(col, nil)
		} else {
			s.Mean[j], s.SD[j] = col[0], math.NaN()
		}

		sort.Float64s(col)
		s.Lower[j] = stat.Quantile(0.025, stat.Empirical, col, nil)
		s.Upper[j] = stat.Quantile(0.975, stat.Empirical, col, nil)
	}

	return s, nil
}

// SummarizeAll summarizes every parameter of a draws map, sorted by name
func SummarizeAll(draws map[string][][]float64, burnIn int) ([]*Summary, error) {
	names := make([]string, 0, len(draws))
	for name := range draws {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Summary, 0, len(names))
	for _, name := range names {
		s, err := Summarize(name, draws[name], burnIn)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
