package rand

import (
	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
	xrand "golang.org/x/exp/rand"
)

// A Generator is the single stream of randomness for a chain. It wraps a
// Mersenne twister and satisfies golang.org/x/exp/rand.Source so it can be
// handed directly to the gonum distributions. A Generator is NOT safe for
// concurrent use: every draw of a chain must come from one goroutine.
type Generator struct {
	mt  *mt19937.MT19937
	rnd *xrand.Rand
}

// NewGenerator creates a PRNG based on the given seed
func NewGenerator(seed int64) (*Generator, error) {
	mt := mt19937.New()
	mt.Seed(seed)
	return newGenerator(mt), nil
}

// NewGeneratorSlice creates a PRNG seeded from a key slice, which matches the
// reference initialization of MT19937-64.
func NewGeneratorSlice(key []uint64) (*Generator, error) {
	if len(key) < 1 {
		return nil, errors.New("Seed slice must have at least one element")
	}

	mt := mt19937.New()
	mt.SeedFromSlice(key)
	return newGenerator(mt), nil
}

func newGenerator(mt *mt19937.MT19937) *Generator {
	g := &Generator{mt: mt}
	g.rnd = xrand.New(g)
	return g
}

// Seed resets the generator - implements xrand.Source
func (g *Generator) Seed(seed uint64) {
	g.mt.Seed(int64(seed))
}

// Uint64 returns the next 64 random bits - implements xrand.Source
func (g *Generator) Uint64() uint64 {
	return g.mt.Uint64()
}

// Int63 provides the same interface as Go's math/rand
func (g *Generator) Int63() int64 {
	return g.mt.Int63()
}

// Int63n is a copy of the current Go code
func (g *Generator) Int63n(n int64) int64 {
	if n <= 0 {
		panic("invalid argument to Int63n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1)
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n
}

// Float64 uses the commented, simpler implmentation since we don't have the
// same support requirements for users
func (g *Generator) Float64() float64 {
	// See the Go lang comments for Rand Float64 implementation for details
	return float64(g.Int63n(1<<53)) / (1 << 53)
}

// NormFloat64 returns a standard normal draw
func (g *Generator) NormFloat64() float64 {
	return g.rnd.NormFloat64()
}
