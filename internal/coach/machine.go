package coach

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
)

// Cooldowns and dwell times of the coaching rules.
const (
	EntryCooldown     = 45 * time.Second
	RecoveryDwell     = 15 * time.Second
	SustainedDwell    = 120 * time.Second
	SustainedCooldown = 90 * time.Second
	CalmDwell         = 120 * time.Second
	CalmCooldown      = 120 * time.Second

	calmFocusFloor = 70.0
)

// Decision is the outcome of one coaching step.
type Decision struct {
	Theme        Theme
	Line         string
	RequestReset bool
	Transition   bool
}

// Spoke reports whether the step produced a line to speak.
func (d Decision) Spoke() bool {
	return d.Theme != ThemeNone
}

// Timeline is the private bookkeeping of the machine, exposed for display.
type Timeline struct {
	PreviousLevel  model.StressLevel
	LastSpokenAt   time.Time
	StateEnteredAt time.Time
	LastSampleAt   time.Time
}

// Machine turns the sample stream into coaching decisions.
type Machine struct {
	chooser  Chooser
	timeline Timeline
	started  bool
}

// NewMachine returns a machine that has seen no samples and never spoken.
func NewMachine(chooser Chooser) *Machine {
	if chooser == nil {
		chooser = NewRandom(0)
	}
	return &Machine{
		chooser:  chooser,
		timeline: Timeline{PreviousLevel: model.StressLow},
	}
}

// Step evaluates one sample. While idle only the previous level is tracked:
// transitions are not timestamped and nothing is spoken. A returned line counts
// as spoken whether or not speech succeeds.
func (m *Machine) Step(level model.StressLevel, focus float64, idle bool, now time.Time) Decision {
	tl := &m.timeline
	if !m.started {
		tl.StateEnteredAt = now
		m.started = true
	}
	tl.LastSampleAt = now
	prev := tl.PreviousLevel
	tl.PreviousLevel = level

	if idle {
		return Decision{}
	}

	var d Decision
	if level != prev {
		dwell := now.Sub(tl.StateEnteredAt)
		tl.StateEnteredAt = now
		d.Transition = true
		switch {
		case level == model.StressHigh && m.cooledDown(now, EntryCooldown):
			d.Theme = ThemeHighStress
			d.RequestReset = true
		case level == model.StressLow && prev == model.StressHigh &&
			dwell >= RecoveryDwell && m.cooledDown(now, EntryCooldown):
			d.Theme = ThemeRecovery
		}
	} else {
		dwell := now.Sub(tl.StateEnteredAt)
		switch {
		case level == model.StressHigh && dwell >= SustainedDwell && m.cooledDown(now, SustainedCooldown):
			d.Theme = ThemeHighStress
			d.RequestReset = true
			tl.StateEnteredAt = now
		case level == model.StressLow && focus > calmFocusFloor &&
			dwell >= CalmDwell && m.cooledDown(now, CalmCooldown):
			d.Theme = ThemeCalmFocus
			tl.StateEnteredAt = now
		}
	}

	if d.Spoke() {
		d.Line = pick(m.chooser, Lines(d.Theme))
		tl.LastSpokenAt = now
	}
	return d
}

// Timeline returns a copy of the bookkeeping state.
func (m *Machine) Timeline() Timeline {
	return m.timeline
}

func (m *Machine) cooledDown(now time.Time, cooldown time.Duration) bool {
	if m.timeline.LastSpokenAt.IsZero() {
		return true
	}
	return now.Sub(m.timeline.LastSpokenAt) >= cooldown
}
