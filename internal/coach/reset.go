package coach

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultResetCooldown is the minimum spacing between two accepted guided resets.
	DefaultResetCooldown = 5 * time.Minute
	// DefaultResetDuration is the length of the guided reset countdown.
	DefaultResetDuration = 60 * time.Second
)

// RefusalReason explains why a guided reset request was not honored.
type RefusalReason int

const (
	Accepted RefusalReason = iota
	RefusedIdle
	RefusedActive
	RefusedCooldown
)

func (r RefusalReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RefusedIdle:
		return "idle"
	case RefusedActive:
		return "active"
	case RefusedCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// ResetState describes the guided reset for display.
type ResetState struct {
	Active           bool
	Remaining        int
	StartedAt        time.Time
	LastActivationAt time.Time
}

// Arbiter is the single owner of the guided reset. It accepts requests from
// the coaching rules and the break charge alike and runs the countdown.
type Arbiter struct {
	limiter  *rate.Limiter
	duration time.Duration

	active    bool
	startedAt time.Time
	remaining int
	lastAt    time.Time
}

// NewArbiter builds an arbiter. Non-positive values fall back to the defaults.
func NewArbiter(cooldown, duration time.Duration) *Arbiter {
	if cooldown <= 0 {
		cooldown = DefaultResetCooldown
	}
	if duration <= 0 {
		duration = DefaultResetDuration
	}
	return &Arbiter{
		limiter:  rate.NewLimiter(rate.Every(cooldown), 1),
		duration: duration,
	}
}

// Request asks for a guided reset at now. The cooldown token is only spent
// once the idle and active checks pass.
func (a *Arbiter) Request(now time.Time, idle bool) RefusalReason {
	if idle {
		return RefusedIdle
	}
	if a.active {
		return RefusedActive
	}
	if !a.limiter.AllowN(now, 1) {
		return RefusedCooldown
	}
	a.active = true
	a.startedAt = now
	a.lastAt = now
	a.remaining = a.totalSeconds()
	return Accepted
}

// Advance moves the countdown to now. It reports ended when this call
// finished the reset.
func (a *Arbiter) Advance(now time.Time) (state ResetState, ended bool) {
	if !a.active {
		return a.State(), false
	}
	elapsed := now.Sub(a.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := a.totalSeconds() - int(elapsed/time.Second)
	if remaining < a.remaining {
		a.remaining = remaining
	}
	if a.remaining <= 0 {
		a.finish()
		return a.State(), true
	}
	return a.State(), false
}

// Skip ends an active reset early. Skipping and expiring are the same terminal transition.
func (a *Arbiter) Skip() bool {
	if !a.active {
		return false
	}
	a.finish()
	return true
}

// Active reports whether a countdown is running.
func (a *Arbiter) Active() bool {
	return a.active
}

// State returns a copy of the reset state.
func (a *Arbiter) State() ResetState {
	return ResetState{
		Active:           a.active,
		Remaining:        a.remaining,
		StartedAt:        a.startedAt,
		LastActivationAt: a.lastAt,
	}
}

func (a *Arbiter) finish() {
	a.active = false
	a.remaining = 0
}

func (a *Arbiter) totalSeconds() int {
	return int(a.duration / time.Second)
}
