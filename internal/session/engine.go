// Package session owns the single session timeline and sequences every
// per-sample component.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/gauge"
	"github.com/verte-zerg/neurocursor/internal/idle"
	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/signal"
	"github.com/verte-zerg/neurocursor/internal/speech"
	"github.com/verte-zerg/neurocursor/internal/stats"
)

// Archiver exports finished session reports.
type Archiver interface {
	SaveReport(ctx context.Context, report model.ArchivedReport) error
}

// Calibrator asks the telemetry source to recalibrate its classifier.
type Calibrator interface {
	RequestCalibration(ctx context.Context) error
}

// Deps are the collaborators of an Engine. Every field is optional.
type Deps struct {
	Logger     *slog.Logger
	Voice      *speech.Voice
	Chooser    coach.Chooser
	Archiver   Archiver
	Calibrator Calibrator
	NewID      func() string
}

// Engine is the single mutation point of the session. All methods are safe
// for concurrent use.
type Engine struct {
	mu sync.Mutex

	cfg        Config
	logger     *slog.Logger
	voice      *speech.Voice
	chooser    coach.Chooser
	archiver   Archiver
	calibrator Calibrator
	newID      func() string

	detector *idle.Detector
	agg      *stats.Aggregator
	shield   *gauge.Shield
	charge   *gauge.Charge
	machine  *coach.Machine
	arbiter  *coach.Arbiter

	sessionID    string
	last         model.TelemetrySample
	scores       model.DerivedScores
	hasSample    bool
	lastSampleAt time.Time
	tip          coach.Tip
	lastLine     string
	calibrating  bool
	coachActive  bool

	listeners []Listener
}

// New builds an engine whose first session starts at now.
func New(cfg Config, deps Deps, now time.Time) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	voice := deps.Voice
	if voice == nil {
		voice = speech.NewVoice(nil, logger)
	}
	chooser := deps.Chooser
	if chooser == nil {
		chooser = coach.NewRandom(0)
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	if cfg.MaxSampleGap <= 0 {
		cfg.MaxSampleGap = stats.DefaultMaxSampleGap
	}
	if cfg.ShieldStart <= 0 {
		cfg.ShieldStart = gauge.DefaultShieldStart
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		voice:      voice,
		chooser:    chooser,
		archiver:   deps.Archiver,
		calibrator: deps.Calibrator,
		newID:      newID,
		detector:   idle.NewDetector(cfg.ActivityThreshold, cfg.IdleAfter),
		agg:        stats.NewAggregator(now, cfg.MaxSampleGap),
		shield:     gauge.NewShield(cfg.ShieldStart),
		charge:     gauge.NewCharge(),
		machine:    coach.NewMachine(chooser),
		arbiter:    coach.NewArbiter(cfg.ResetCooldown, cfg.ResetDuration),
		sessionID:  newID(),
		scores:     signal.Normalize(model.TelemetrySample{}),
		tip:        coach.DefaultTip(),
	}
}

// Subscribe registers a listener for engine events.
func (e *Engine) Subscribe(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// Ingest consumes one telemetry sample received at now. A now earlier than
// the previous sample is moved up to it, so the timeline never runs backwards.
func (e *Engine) Ingest(sample model.TelemetrySample, now time.Time) {
	sample = sanitize(sample)

	e.mu.Lock()
	if e.hasSample && now.Before(e.lastSampleAt) {
		now = e.lastSampleAt
	}
	scores := signal.Normalize(sample)
	e.detector.Observe(sample, now)
	isIdle := e.detector.IsIdle(now)

	dt := e.sampleDelta(now)
	levelChanged := !e.hasSample || sample.StressLevel != e.last.StressLevel
	e.last = sample
	e.scores = scores
	e.hasSample = true
	e.lastSampleAt = now

	e.agg.Ingest(sample, dt)

	var events []Event
	events = append(events, Event{Kind: EventSample, At: now, Sample: sample, Scores: scores, Idle: isIdle})

	e.shield.Update(scores.StressScore, dt)
	if _, triggered := e.charge.Update(scores.StressScore, dt); triggered {
		events = append(events, e.requestResetLocked(now, isIdle, TriggerCharge))
	}

	decision := e.machine.Step(sample.StressLevel, scores.FocusScore, isIdle, now)
	if decision.Spoke() {
		e.lastLine = decision.Line
		events = append(events, Event{Kind: EventSpoke, At: now, Theme: decision.Theme, Line: decision.Line})
	}
	if decision.RequestReset {
		events = append(events, e.requestResetLocked(now, isIdle, TriggerCoach))
	}

	if levelChanged {
		e.tip = coach.PickTip(e.chooser, sample.StressLevel)
	}
	if _, ended := e.arbiter.Advance(now); ended {
		events = append(events, Event{Kind: EventResetEnded, At: now})
	}
	e.dispatch(events)
}

// Advance drives the guided reset countdown. Hosts call it about once a second.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	var events []Event
	if _, ended := e.arbiter.Advance(now); ended {
		events = append(events, Event{Kind: EventResetEnded, At: now})
	}
	e.dispatch(events)
}

// SkipReset ends an active guided reset. It reports whether one was running.
func (e *Engine) SkipReset(now time.Time) bool {
	e.mu.Lock()
	var events []Event
	skipped := e.arbiter.Skip()
	if skipped {
		events = append(events, Event{Kind: EventResetEnded, At: now, Skipped: true})
	}
	e.dispatch(events)
	return skipped
}

// StartNewSession closes the current session and starts a fresh one at now.
// Gauges and the coaching timeline carry over. When an archiver is configured
// and the finished session saw samples, its report is exported first; export
// failures are logged and do not block the new session.
func (e *Engine) StartNewSession(ctx context.Context, now time.Time) string {
	e.mu.Lock()
	snapshot := e.agg.Snapshot(e.sessionID, now)
	e.agg.Reset(now)
	e.sessionID = e.newID()
	id := e.sessionID
	e.mu.Unlock()

	archived, err := e.archive(ctx, snapshot)
	if err != nil {
		e.logger.Warn("session export failed", "error", err)
	}

	e.mu.Lock()
	e.dispatch([]Event{{Kind: EventSessionStarted, At: now, Archived: archived}})
	return id
}

// Archive exports the current session without resetting it. It returns nil
// when there is nothing to export.
func (e *Engine) Archive(ctx context.Context, now time.Time) (*model.ArchivedReport, error) {
	return e.archive(ctx, e.Snapshot(now))
}

// Snapshot copies the current session statistics.
func (e *Engine) Snapshot(now time.Time) model.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.Snapshot(e.sessionID, now)
}

// Report generates the wellbeing report of the current session.
func (e *Engine) Report(now time.Time) model.WellbeingReport {
	return stats.Generate(e.Snapshot(now))
}

// RequestCalibration speaks the calibration prompt and asks the telemetry
// source to calibrate. Failures of the request are logged.
func (e *Engine) RequestCalibration(ctx context.Context, now time.Time) {
	e.mu.Lock()
	e.calibrating = true
	prompt := coach.CalibrationPrompt(e.coachActive || e.last.AIActive)
	calibrator := e.calibrator
	e.dispatch([]Event{{Kind: EventCalibrationRequested, At: now, Line: prompt}})

	if calibrator == nil {
		return
	}
	if err := calibrator.RequestCalibration(ctx); err != nil {
		e.logger.Warn("calibration request failed", "error", err)
	}
}

// CalibrationStarted records that the telemetry source began calibrating.
func (e *Engine) CalibrationStarted(now time.Time) {
	e.mu.Lock()
	e.calibrating = true
	e.dispatch([]Event{{Kind: EventCalibrationStarted, At: now}})
}

// CalibrationFinished marks the coach active and speaks a confirmation.
func (e *Engine) CalibrationFinished(now time.Time) {
	e.mu.Lock()
	e.calibrating = false
	e.coachActive = true
	e.dispatch([]Event{{Kind: EventCalibrationFinished, At: now, Line: coach.CalibrationDonePrompt()}})
}

// SetMuted changes the voice mute flag.
func (e *Engine) SetMuted(muted bool, now time.Time) {
	e.voice.SetMuted(muted)
	e.mu.Lock()
	e.dispatch([]Event{{Kind: EventVoiceChanged, At: now, Muted: muted}})
}

// ToggleMute flips the voice mute flag and returns the new value.
func (e *Engine) ToggleMute(now time.Time) bool {
	muted := e.voice.Toggle()
	e.mu.Lock()
	e.dispatch([]Event{{Kind: EventVoiceChanged, At: now, Muted: muted}})
	return muted
}

func (e *Engine) requestResetLocked(now time.Time, isIdle bool, trigger Trigger) Event {
	reason := e.arbiter.Request(now, isIdle)
	if reason != coach.Accepted {
		return Event{Kind: EventResetRefused, At: now, Trigger: trigger, Reason: reason}
	}
	e.logger.Info("guided reset started", "trigger", string(trigger))
	return Event{Kind: EventResetStarted, At: now, Trigger: trigger}
}

// sampleDelta is the wall-clock gap used by the gauges and the aggregator.
// The first sample, clock skew and long gaps contribute nothing.
func (e *Engine) sampleDelta(now time.Time) time.Duration {
	if !e.hasSample {
		return 0
	}
	dt := now.Sub(e.lastSampleAt)
	if dt < 0 || dt > e.cfg.MaxSampleGap {
		return 0
	}
	return dt
}

func (e *Engine) archive(ctx context.Context, snapshot model.SessionSnapshot) (*model.ArchivedReport, error) {
	if e.archiver == nil || snapshot.Stats.SampleCount == 0 {
		return nil, nil
	}
	archived := Archived(snapshot, stats.Generate(snapshot))
	if err := e.archiver.SaveReport(ctx, archived); err != nil {
		return nil, fmt.Errorf("failed to archive session %s: %w", snapshot.SessionID, err)
	}
	return &archived, nil
}

// dispatch releases the lock, then speaks and notifies listeners. It must be
// called with e.mu held.
func (e *Engine) dispatch(events []Event) {
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.Unlock()

	for _, ev := range events {
		switch ev.Kind {
		case EventSpoke, EventCalibrationRequested, EventCalibrationFinished:
			e.voice.Say(ev.Line)
		}
		for _, l := range listeners {
			l(ev)
		}
	}
}

// Archived converts a snapshot and its report into the exported form.
func Archived(snapshot model.SessionSnapshot, report model.WellbeingReport) model.ArchivedReport {
	return model.ArchivedReport{
		ID:                snapshot.SessionID,
		StartedAt:         snapshot.StartedAt,
		EndedAt:           snapshot.TakenAt,
		DurationMs:        snapshot.Duration.Milliseconds(),
		MicroStressEvents: snapshot.Stats.MicroStressEvents,
		HighLoadMs:        snapshot.Stats.HighLoadDuration.Milliseconds(),
		SampleCount:       snapshot.Stats.SampleCount,
		AverageFocus:      snapshot.Stats.AverageFocus,
		Score:             report.Score,
		Profile:           report.Profile,
		Summary:           report.FormattedSummary,
	}
}

func sanitize(sample model.TelemetrySample) model.TelemetrySample {
	sample.Velocity = signal.Clamp(sample.Velocity, 0, math.MaxFloat64)
	sample.Jitter = signal.Clamp(sample.Jitter, 0, math.MaxFloat64)
	return sample
}
