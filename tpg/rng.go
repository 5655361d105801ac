package tpg

import (
	"math/rand"
	"time"
)

// Rand is the random source shared by every variation operator. It is owned
// by the Trainer and passed down explicitly so tests can seed it.
type Rand struct {
	*rand.Rand
}

// NewRand returns a source seeded with seed. A zero seed falls back to the
// wall clock.
func NewRand(seed int64) *Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Rand{rand.New(rand.NewSource(seed))}
}

// Flip reports a Bernoulli trial with probability p.
func (r *Rand) Flip(p float64) bool {
	return r.Float64() < p
}
