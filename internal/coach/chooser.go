// Package coach decides when and what the coach says, and arbitrates guided resets.
package coach

import (
	"math/rand"
	"time"
)

// Chooser picks an index in [0, n). Tests substitute a deterministic one.
type Chooser interface {
	Choose(n int) int
}

// Random is the default Chooser backed by math/rand.
type Random struct {
	rnd *rand.Rand
}

// NewRandom returns a Random seeded with seed, or with the current time when seed is 0.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rnd: rand.New(rand.NewSource(seed))}
}

// Choose returns a uniformly distributed index. Empty ranges yield 0.
func (r *Random) Choose(n int) int {
	if n <= 0 {
		return 0
	}
	return r.rnd.Intn(n)
}

func pick[T any](c Chooser, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	idx := c.Choose(len(items))
	if idx < 0 || idx >= len(items) {
		idx = 0
	}
	return items[idx]
}
