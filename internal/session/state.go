package session

import (
	"fmt"
	"time"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/signal"
)

// CalibrationTarget is the number of samples the upstream classifier learns from.
const CalibrationTarget = 50

// State is a point-in-time view of the engine for dashboards and the HTTP API.
type State struct {
	SessionID string
	StartedAt time.Time
	Duration  time.Duration

	HasSample    bool
	Sample       model.TelemetrySample
	Scores       model.DerivedScores
	Descriptor   string
	StrainLabel  string
	Idle         bool
	LastSampleAt time.Time

	Stats model.SessionStats

	Shield         float64
	Charge         float64
	SecondsToBreak float64

	Reset    coach.ResetState
	Timeline coach.Timeline
	Tip      coach.Tip
	LastLine string

	Calibrating bool
	CoachActive bool
	Muted       bool
}

// Strained reports whether the strain banner should be shown.
func (s State) Strained() bool {
	return s.HasSample && s.Sample.StressLevel == model.StressHigh
}

// CalibrationLabel is the progress label shown while the classifier learns.
// It is empty once the classifier is active.
func (s State) CalibrationLabel() string {
	if s.Sample.AIActive {
		return ""
	}
	progress := s.Sample.LearningProgress
	if progress < 0 {
		progress = 0
	}
	return fmt.Sprintf("CALIBRATING [%d/%d]", progress, CalibrationTarget)
}

// State returns the current view as of now.
func (e *Engine) State(now time.Time) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	duration := now.Sub(e.agg.StartedAt())
	if duration < 0 {
		duration = 0
	}
	return State{
		SessionID:      e.sessionID,
		StartedAt:      e.agg.StartedAt(),
		Duration:       duration,
		HasSample:      e.hasSample,
		Sample:         e.last,
		Scores:         e.scores,
		Descriptor:     signal.FocusDescriptor(e.last.StressLevel, e.scores.FocusScore),
		StrainLabel:    signal.StrainLabel(e.scores.StressScore),
		Idle:           e.detector.IsIdle(now),
		LastSampleAt:   e.lastSampleAt,
		Stats:          e.agg.Stats(),
		Shield:         e.shield.HP(),
		Charge:         e.charge.Value(),
		SecondsToBreak: e.charge.SecondsToNextBreakAt(e.scores.StressScore),
		Reset:          e.arbiter.State(),
		Timeline:       e.machine.Timeline(),
		Tip:            e.tip,
		LastLine:       e.lastLine,
		Calibrating:    e.calibrating,
		CoachActive:    e.coachActive || e.last.AIActive,
		Muted:          e.voice.Muted(),
	}
}
