// Package gauge implements the two gamified accumulators shown next to the
// focus score: the health shield and the break charge.
package gauge

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/signal"
)

const (
	// DefaultShieldStart is the shield level of a fresh process.
	DefaultShieldStart = 85.0

	shieldMax       = 100.0
	damagePerMinute = 26.0
	regenPerMinute  = 18.0
)

// Shield drains under stress and regenerates under calm movement. It has no
// terminal state: an empty shield keeps tracking.
type Shield struct {
	hp float64
}

// NewShield returns a shield at start, clamped to [0, 100].
func NewShield(start float64) *Shield {
	return &Shield{hp: signal.Clamp(start, 0, shieldMax)}
}

// Update applies dt worth of damage and regeneration for the given stress score.
func (s *Shield) Update(stress float64, dt time.Duration) float64 {
	stress = signal.Clamp(stress, 0, 100)
	damage := stress / 100 * damagePerMinute
	regen := (100 - stress) / 100 * regenPerMinute
	net := (regen - damage) / 60
	s.hp = signal.Clamp(s.hp+net*seconds(dt), 0, shieldMax)
	return s.hp
}

// HP returns the current shield level.
func (s *Shield) HP() float64 {
	return s.hp
}

func seconds(dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	return dt.Seconds()
}
