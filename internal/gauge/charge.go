package gauge

import (
	"math"
	"time"

	"github.com/verte-zerg/neurocursor/internal/signal"
)

const (
	baseChargePerSecond   = 0.012
	stressChargePerSecond = 0.045

	// TriggerLevel is the charge at which a guided reset is requested.
	TriggerLevel = 0.99
)

// Charge fills toward the next recommended break, faster under stress.
type Charge struct {
	value float64
	rate  float64
}

// NewCharge returns an empty charge.
func NewCharge() *Charge {
	return &Charge{rate: Rate(0)}
}

// Rate is the fill speed per second for a stress score.
func Rate(stress float64) float64 {
	return baseChargePerSecond + signal.Clamp(stress, 0, 100)/100*stressChargePerSecond
}

// Update advances the charge by dt. When the charge reaches TriggerLevel it is
// emptied and triggered reports true; the charge then has to refill before the
// next trigger.
func (c *Charge) Update(stress float64, dt time.Duration) (value float64, triggered bool) {
	c.rate = Rate(stress)
	c.value = signal.Clamp(c.value+c.rate*seconds(dt), 0, 1)
	if c.value >= TriggerLevel {
		c.value = 0
		triggered = true
	}
	return c.value, triggered
}

// Value returns the current charge in [0, 1].
func (c *Charge) Value() float64 {
	return c.value
}

// SecondsToNextBreak estimates the time until the next trigger at the last seen rate.
func (c *Charge) SecondsToNextBreak() float64 {
	if c.rate <= 0 {
		return math.Inf(1)
	}
	return (1 - c.value) / c.rate
}

// SecondsToNextBreakAt estimates the time until the next trigger for a given stress score.
func (c *Charge) SecondsToNextBreakAt(stress float64) float64 {
	return (1 - c.value) / Rate(stress)
}
