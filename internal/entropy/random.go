// Package entropy provides the simulation's randomness source. A single
// seeded generator feeds every stochastic decision so that a run is
// reproducible from its seed.
package entropy

import (
	"math/rand"
	"sync"
)

// Source is a mutex-guarded seeded generator. The simulation thread is the
// only caller during a tick, but the spawner and admin interventions may
// touch it from setup paths, so it stays safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource creates a Source from a seed.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float returns a random float64 in [0, 1).
func (s *Source) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Intn returns a random int in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Chance rolls a probability check: true with probability p.
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float() < p
}

// Range returns a random float64 in [lo, hi).
func (s *Source) Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.Float()*(hi-lo)
}
