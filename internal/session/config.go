package session

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/gauge"
	"github.com/verte-zerg/neurocursor/internal/idle"
	"github.com/verte-zerg/neurocursor/internal/stats"
)

// Config holds the tunable constants of the engine.
type Config struct {
	ActivityThreshold float64
	IdleAfter         time.Duration
	ResetCooldown     time.Duration
	ResetDuration     time.Duration
	MaxSampleGap      time.Duration
	ShieldStart       float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		ActivityThreshold: idle.DefaultActivityThreshold,
		IdleAfter:         idle.DefaultIdleAfter,
		ResetCooldown:     coach.DefaultResetCooldown,
		ResetDuration:     coach.DefaultResetDuration,
		MaxSampleGap:      stats.DefaultMaxSampleGap,
		ShieldStart:       gauge.DefaultShieldStart,
	}
}
