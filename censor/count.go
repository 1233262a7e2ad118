package censor

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/quantmc/rand"
)

// MaxRejectionRounds bounds the accept/reject loops of this package. Hitting
// it means the configuration is pathological, not that more rounds would
// help.
const MaxRejectionRounds = 1000000

// RejectionLimitError reports a rejection sampler that hit MaxRejectionRounds
type RejectionLimitError struct {
	Sampler string
	Pending int // Draws still unaccepted
	Rounds  int
}

func (e *RejectionLimitError) Error() string {
	return fmt.Sprintf("%s rejection sampler gave up after %d rounds with %d draws pending",
		e.Sampler, e.Rounds, e.Pending)
}

// NegativeBinomial draws the number of failures before n successes with
// success probability p, via the Gamma-Poisson mixture. n may be fractional.
func NegativeBinomial(gen *rand.Generator, n, p float64) int {
	if p >= 1 {
		return 0
	}
	lam := distuv.Gamma{Alpha: n, Beta: p / (1 - p), Src: gen}.Rand()
	if !(lam > 0) {
		return 0
	}
	return int(distuv.Poisson{Lambda: lam, Src: gen}.Rand())
}

// SampleCounts draws the number of censored states for every peptide given
// its observed state count, the random censoring probability, its
// intensity-based censoring probability, and the negative binomial state
// count parameters (r, lambda). The draw is exact: proposals come from
// NegativeBinomial(nObs + r, pGeom) and are accepted with probability
// (nObs+k)/(nObs+k+r-1) scaled by an envelope bound that is 1 for r >= 1 and
// (nObs+r-1)/nObs otherwise. Peptides without observed states
// accept immediately and then get one extra state, so every peptide has at
// least one state.
func SampleCounts(gen *rand.Generator, nObs []int, pRndCen float64, pIntCen []float64, r, lambda float64) ([]int, error) {
	m := len(nObs)
	if len(pIntCen) != m {
		return nil, errors.Errorf("Censoring probability count %d != peptide count %d", len(pIntCen), m)
	}
	if !(r > 0) || !(lambda > 0 && lambda <= 1) {
		return nil, errors.Errorf("Invalid state count parameters r=%v lambda=%v", r, lambda)
	}

	pGeom := make([]float64, m)
	bound := make([]float64, m)
	for i, n := range nObs {
		pGeom[i] = 1 - (1-lambda)*(pRndCen+(1-pRndCen)*pIntCen[i])
		bound[i] = 1
		if r < 1 && n > 0 {
			bound[i] = (float64(n) + r - 1) / float64(n)
		}
	}

	nCen := make([]int, m)
	active := make([]int, m)
	for i := range active {
		active[i] = i
	}

	rounds := 0
	for len(active) > 0 {
		if rounds >= MaxRejectionRounds {
			return nil, &RejectionLimitError{Sampler: "Censored count", Pending: len(active), Rounds: rounds}
		}

		rejected := active[:0]
		for _, i := range active {
			n := float64(nObs[i])
			prop := NegativeBinomial(gen, n+r, pGeom[i])
			u := gen.Float64()

			pAccept := 1.0
			if nObs[i] > 0 {
				k := float64(prop)
				pAccept = (n + k) / (n + k + r - 1) * bound[i]
			}

			if u < pAccept {
				nCen[i] = prop
			} else {
				rejected = append(rejected, i)
			}
		}
		active = rejected
		rounds++
	}

	for i, n := range nObs {
		if n == 0 {
			nCen[i]++
		}
	}

	return nCen, nil
}
