package session

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/model"
)

// EventKind enumerates what the engine reports to listeners.
type EventKind int

const (
	EventSample EventKind = iota
	EventSpoke
	EventResetStarted
	EventResetRefused
	EventResetEnded
	EventSessionStarted
	EventCalibrationRequested
	EventCalibrationStarted
	EventCalibrationFinished
	EventVoiceChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSample:
		return "sample"
	case EventSpoke:
		return "spoke"
	case EventResetStarted:
		return "reset_started"
	case EventResetRefused:
		return "reset_refused"
	case EventResetEnded:
		return "reset_ended"
	case EventSessionStarted:
		return "session_started"
	case EventCalibrationRequested:
		return "calibration_requested"
	case EventCalibrationStarted:
		return "calibration_started"
	case EventCalibrationFinished:
		return "calibration_finished"
	case EventVoiceChanged:
		return "voice_changed"
	default:
		return "unknown"
	}
}

// Trigger names what asked for a guided reset.
type Trigger string

const (
	TriggerCoach  Trigger = "coach"
	TriggerCharge Trigger = "charge"
)

// Event is delivered to listeners after the engine lock is released.
type Event struct {
	Kind    EventKind
	At      time.Time
	Theme   coach.Theme
	Line    string
	Trigger Trigger
	Reason  coach.RefusalReason
	Skipped bool
	Muted   bool
	Sample  model.TelemetrySample
	Scores  model.DerivedScores
	Idle    bool
	// Archived is set on EventSessionStarted when the previous session was exported.
	Archived *model.ArchivedReport
}

// Listener receives engine events. Listeners run on the caller's goroutine and
// must not call back into the engine synchronously with a lock held.
type Listener func(Event)
