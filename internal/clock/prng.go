package clock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// HashNamespace folds the 64-bit xxhash of ns into 32 bits.
func HashNamespace(ns string) uint32 {
	h := xxhash.Sum64String(ns)
	return uint32(h ^ h>>32)
}

// CombineSeed mixes a clock seed with a namespace hash.
func CombineSeed(seed, nsHash uint32) uint32 {
	x := seed ^ nsHash
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}

// Generator is a Mulberry32 stream. It is not safe for concurrent use.
type Generator struct {
	state uint32
}

// NewGenerator seeds a generator.
func NewGenerator(seed uint32) *Generator { return &Generator{state: seed} }

// Uint32 returns the next 32 random bits.
func (g *Generator) Uint32() uint32 {
	g.state += 0x6d2b79f5
	t := g.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns a value in [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / (1 << 32)
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (g *Generator) Intn(n int) int {
	if n <= 0 {
		panic("clock: invalid argument to Intn")
	}
	return int(uint64(g.Uint32()) * uint64(n) >> 32)
}

// Range returns a value in [lo, hi).
func (g *Generator) Range(lo, hi float64) float64 {
	return lo + g.Float64()*(hi-lo)
}

// Shuffle permutes n elements with a Fisher-Yates pass.
func (g *Generator) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, g.Intn(i+1))
	}
}

// Pick returns a random element of items, or the zero value when empty.
func Pick[T any](g *Generator, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[g.Intn(len(items))]
}

// Streams caches one generator per namespace so that repeated lookups
// continue a sequence instead of restarting it. The cache is safe for
// concurrent use; each returned Generator is not.
type Streams struct {
	clock Clock

	mu   sync.Mutex
	gens map[string]*Generator
}

func newStreams(c Clock) *Streams {
	return &Streams{clock: c, gens: make(map[string]*Generator)}
}

// Clock returns the clock the streams derive from.
func (s *Streams) Clock() Clock { return s.clock }

// Get returns the generator for namespace, creating it on first use.
func (s *Streams) Get(namespace string) *Generator {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gens[namespace]
	if !ok {
		g = s.clock.PRNG(namespace)
		s.gens[namespace] = g
	}
	return g
}

// Len returns the number of namespaces in use.
func (s *Streams) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gens)
}
