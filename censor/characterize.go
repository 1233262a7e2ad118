// Package censor characterizes and samples the censored part of the model:
// the conditional law of a censored log-intensity, the number of censored
// states per peptide, and the censored intensities themselves.
package censor

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/CraigKelly/quantmc/density"
	"github.com/CraigKelly/quantmc/numeric"
)

// CharacterizeOptions tunes the mode search
type CharacterizeOptions struct {
	Tol         float64 // Halley tolerance; bisection uses sqrt(Tol)
	MaxIter     int     // Halley iteration cap
	BisectIter  int     // Bisection iteration cap
	BisectScale float64 // Half-width of the starting bracket in SDs
	BlockSize   int     // Peptides per concurrently solved block
}

// DefaultCharacterizeOptions returns the settings used by the chain
func DefaultCharacterizeOptions() CharacterizeOptions {
	return CharacterizeOptions{
		Tol:         1e-5,
		MaxIter:     200,
		BisectIter:  10,
		BisectScale: 6,
		BlockSize:   4096,
	}
}

// CensoredDist summarizes, per peptide, the Gaussian approximation to the
// distribution of a censored log-intensity.
type CensoredDist struct {
	YHat     []float64 // Approximate conditional mode
	ApproxSD []float64 // sqrt(1 / observed information) at the mode
	PIntCen  []float64 // Laplace approximation of p(intensity-based censoring)
}

// Characterize finds the mode of the censored log-density for every peptide
// (a few bisection steps to land in the basin of attraction, then Halley),
// its curvature, and the Laplace approximation of its integral.
//
// The starting bracket is mu +/- BisectScale*sd, widened where needed to
// mu +/- |eta1|*sigmasq: the derivative is strictly decreasing and its root
// always lies within that distance of mu.
func Characterize(eta0, eta1, mu, sigmasq []float64, opts CharacterizeOptions) (*CensoredDist, error) {
	params, err := density.NewCensoredParams(mu, sigmasq, eta0, eta1)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid censored distribution parameters")
	}

	n := params.Len()
	out := &CensoredDist{
		YHat:     make([]float64, n),
		ApproxSD: make([]float64, n),
		PIntCen:  make([]float64, n),
	}

	block := opts.BlockSize
	if block < 1 {
		block = n
	}

	var g errgroup.Group
	for lo := 0; lo < n; lo += block {
		lo := lo
		hi := lo + block
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			return characterizeBlock(params.Slice(lo, hi), opts, out, lo)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func characterizeBlock(p *density.CensoredParams, opts CharacterizeOptions, out *CensoredDist, offset int) error {
	n := p.Len()
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := 0; i < n; i++ {
		half := opts.BisectScale * math.Sqrt(p.Variance[i])
		if w := math.Abs(p.Eta1[i]) * p.Variance[i]; w > half {
			half = w
		}
		lower[i] = p.Mean[i] - half
		upper[i] = p.Mean[i] + half
	}

	start, err := numeric.Bisect(p.Deriv1(), lower, upper, math.Sqrt(opts.Tol), opts.BisectIter)
	if err != nil {
		return errors.Wrapf(err, "Bracketing censored mode (block at %d)", offset)
	}

	mode, err := numeric.Halley(p.Deriv1(), p.Deriv2(), p.Deriv3(), start.X, opts.Tol, opts.MaxIter)
	if err != nil {
		return errors.Wrapf(err, "Refining censored mode (block at %d)", offset)
	}

	info := make([]float64, n)
	p.Deriv2().Evaluate(info, mode.X)
	for i := range info {
		info[i] = -info[i]
	}

	pInt := numeric.LaplaceApprox(p.Density(), mode.X, info)

	for i := 0; i < n; i++ {
		out.YHat[offset+i] = mode.X[i]
		out.ApproxSD[offset+i] = math.Sqrt(1 / info[i])
		out.PIntCen[offset+i] = pInt[i]
	}
	return nil
}
