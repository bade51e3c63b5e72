// Package idle tracks whether the input device is actually being used.
package idle

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
)

const (
	// DefaultActivityThreshold is the velocity or jitter above which a sample counts as movement.
	DefaultActivityThreshold = 2.0
	// DefaultIdleAfter is how long without movement before the user is considered away.
	DefaultIdleAfter = 3 * time.Second
)

// Detector remembers the last time meaningful motion was observed.
type Detector struct {
	threshold      float64
	idleAfter      time.Duration
	lastMovementAt time.Time
}

// NewDetector builds a Detector. Non-positive arguments fall back to the defaults.
func NewDetector(threshold float64, idleAfter time.Duration) *Detector {
	if threshold <= 0 {
		threshold = DefaultActivityThreshold
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &Detector{threshold: threshold, idleAfter: idleAfter}
}

// Observe records a sample received at now. The first observation seeds the
// movement clock so a stream never starts out idle.
func (d *Detector) Observe(sample model.TelemetrySample, now time.Time) {
	if d.lastMovementAt.IsZero() || sample.Velocity > d.threshold || sample.Jitter > d.threshold {
		d.lastMovementAt = now
	}
}

// IsIdle reports whether no movement has been seen for longer than the idle window.
func (d *Detector) IsIdle(now time.Time) bool {
	if d.lastMovementAt.IsZero() {
		return true
	}
	return now.Sub(d.lastMovementAt) > d.idleAfter
}

// LastMovementAt returns the time of the last observed movement.
func (d *Detector) LastMovementAt() time.Time {
	return d.lastMovementAt
}
