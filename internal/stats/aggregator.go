package stats

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/signal"
)

// DefaultMaxSampleGap is the largest inter-sample delta credited to the session.
// Anything larger is treated as clock skew.
const DefaultMaxSampleGap = 10 * time.Minute

// Aggregator owns the SessionStats of the current session.
type Aggregator struct {
	stats     model.SessionStats
	startedAt time.Time
	prevLevel model.StressLevel
	maxGap    time.Duration
}

// NewAggregator starts a session at startedAt. A non-positive maxGap uses DefaultMaxSampleGap.
func NewAggregator(startedAt time.Time, maxGap time.Duration) *Aggregator {
	if maxGap <= 0 {
		maxGap = DefaultMaxSampleGap
	}
	return &Aggregator{
		stats:     model.NewSessionStats(),
		startedAt: startedAt,
		prevLevel: model.StressLow,
		maxGap:    maxGap,
	}
}

// Ingest folds one sample into the session. dt is the wall-clock delta since the
// previously ingested sample; it is ignored for the first sample of a session.
func (a *Aggregator) Ingest(sample model.TelemetrySample, dt time.Duration) {
	dt = a.sanitize(dt)
	focus := signal.Normalize(sample).FocusScore

	if a.prevLevel == model.StressLow && sample.StressLevel == model.StressHigh {
		a.stats.MicroStressEvents++
	}
	if sample.StressLevel == model.StressHigh {
		a.stats.HighLoadDuration += dt
	}
	a.stats.SampleCount++
	a.stats.AverageFocus += (focus - a.stats.AverageFocus) / float64(a.stats.SampleCount)
	a.prevLevel = sample.StressLevel
}

// Reset starts a fresh session at now. The stress level of the last sample is
// kept so that an edge is only counted between two real consecutive samples.
func (a *Aggregator) Reset(now time.Time) {
	a.stats = model.NewSessionStats()
	a.startedAt = now
}

// Stats returns a copy of the running counters.
func (a *Aggregator) Stats() model.SessionStats {
	return a.stats
}

// StartedAt returns the start of the current session.
func (a *Aggregator) StartedAt() time.Time {
	return a.startedAt
}

// Snapshot captures the session as of now.
func (a *Aggregator) Snapshot(sessionID string, now time.Time) model.SessionSnapshot {
	duration := now.Sub(a.startedAt)
	if duration < 0 {
		duration = 0
	}
	return model.SessionSnapshot{
		SessionID: sessionID,
		StartedAt: a.startedAt,
		TakenAt:   now,
		Stats:     a.stats,
		Duration:  duration,
	}
}

func (a *Aggregator) sanitize(dt time.Duration) time.Duration {
	if a.stats.SampleCount == 0 || dt < 0 || dt > a.maxGap {
		return 0
	}
	return dt
}
