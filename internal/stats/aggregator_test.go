package stats

import (
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/signal"
)

var epoch = time.Unix(1_700_000_000, 0)

func sample(level model.StressLevel, jitter float64) model.TelemetrySample {
	return model.TelemetrySample{Velocity: 20, Jitter: jitter, StressLevel: level}
}

func TestAggregatorStartsAtFullFocus(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	stats := agg.Stats()
	if stats.AverageFocus != 100 || stats.SampleCount != 0 || stats.MicroStressEvents != 0 || stats.HighLoadDuration != 0 {
		t.Fatalf("unexpected initial stats: %+v", stats)
	}
}

func TestAggregatorZeroJitterKeepsFullFocus(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	for i := 0; i < 25; i++ {
		agg.Ingest(sample(model.StressLow, 0), time.Second)
	}
	if got := agg.Stats().AverageFocus; got != 100 {
		t.Fatalf("expected average focus 100, got %v", got)
	}
}

func TestAggregatorHighLoadSkipsFirstDelta(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	for i := 0; i < 10; i++ {
		dt := time.Second
		if i == 0 {
			dt = 0
		}
		agg.Ingest(sample(model.StressHigh, 0), dt)
	}
	if got := agg.Stats().HighLoadDuration; got != 9*time.Second {
		t.Fatalf("expected 9000ms of high load, got %v", got)
	}
}

func TestAggregatorIgnoresDeltaOnFirstSample(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	agg.Ingest(sample(model.StressHigh, 0), 5*time.Second)
	if got := agg.Stats().HighLoadDuration; got != 0 {
		t.Fatalf("first sample of a session must not accrue, got %v", got)
	}
}

func TestAggregatorSingleSpikeCountsOnce(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	agg.Ingest(sample(model.StressLow, 0), 0)
	agg.Ingest(sample(model.StressHigh, 0), time.Second)
	agg.Ingest(sample(model.StressLow, 0), time.Second)
	if got := agg.Stats().MicroStressEvents; got != 1 {
		t.Fatalf("expected 1 micro-stress event, got %d", got)
	}
}

func TestAggregatorClampsSkew(t *testing.T) {
	agg := NewAggregator(epoch, time.Minute)
	agg.Ingest(sample(model.StressHigh, 0), 0)
	agg.Ingest(sample(model.StressHigh, 0), -3*time.Second)
	agg.Ingest(sample(model.StressHigh, 0), 2*time.Hour)
	agg.Ingest(sample(model.StressHigh, 0), 2*time.Second)
	if got := agg.Stats().HighLoadDuration; got != 2*time.Second {
		t.Fatalf("expected skewed deltas to be dropped, got %v", got)
	}
}

func TestAggregatorReset(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	agg.Ingest(sample(model.StressHigh, 90), 0)
	agg.Ingest(sample(model.StressHigh, 90), time.Second)

	later := epoch.Add(time.Minute)
	agg.Reset(later)
	stats := agg.Stats()
	if stats != model.NewSessionStats() {
		t.Fatalf("expected fresh stats after reset, got %+v", stats)
	}
	if !agg.StartedAt().Equal(later) {
		t.Fatalf("expected session start to move to %v, got %v", later, agg.StartedAt())
	}

	agg.Ingest(sample(model.StressHigh, 0), 10*time.Second)
	stats = agg.Stats()
	if stats.HighLoadDuration != 0 {
		t.Fatalf("first sample after reset must not accrue, got %v", stats.HighLoadDuration)
	}
	if stats.MicroStressEvents != 0 {
		t.Fatalf("HIGH following HIGH across a reset is not an edge, got %d", stats.MicroStressEvents)
	}
}

func TestAggregatorSnapshot(t *testing.T) {
	agg := NewAggregator(epoch, 0)
	agg.Ingest(sample(model.StressLow, 30), 0)
	snap := agg.Snapshot("abc", epoch.Add(90*time.Second))
	if snap.Duration != 90*time.Second {
		t.Fatalf("unexpected duration: %v", snap.Duration)
	}
	if snap.SessionID != "abc" || snap.Stats.SampleCount != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	agg.Ingest(sample(model.StressLow, 30), time.Second)
	if snap.Stats.SampleCount != 1 {
		t.Fatalf("snapshot must not follow later mutations")
	}
	if early := agg.Snapshot("abc", epoch.Add(-time.Second)); early.Duration != 0 {
		t.Fatalf("expected negative duration to clamp, got %v", early.Duration)
	}
}

type step struct {
	level  model.StressLevel
	jitter float64
	dt     time.Duration
}

func drawSteps(t *rapid.T) []step {
	n := rapid.IntRange(1, 200).Draw(t, "n")
	steps := make([]step, n)
	for i := range steps {
		steps[i] = step{
			level:  model.StressLevel(rapid.IntRange(0, 1).Draw(t, "level")),
			jitter: rapid.Float64Range(0, 600).Draw(t, "jitter"),
			dt:     time.Duration(rapid.Int64Range(0, 5000).Draw(t, "dt_ms")) * time.Millisecond,
		}
	}
	return steps
}

func TestAggregatorAverageIsArithmeticMean(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		steps := drawSteps(t)
		agg := NewAggregator(epoch, 0)
		var sum float64
		for _, s := range steps {
			agg.Ingest(sample(s.level, s.jitter), s.dt)
			sum += signal.Normalize(sample(s.level, s.jitter)).FocusScore
		}
		want := sum / float64(len(steps))
		got := agg.Stats().AverageFocus
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("running mean %v differs from arithmetic mean %v", got, want)
		}
		if agg.Stats().SampleCount != len(steps) {
			t.Fatalf("expected %d samples, got %d", len(steps), agg.Stats().SampleCount)
		}
	})
}

func TestAggregatorEdgesAndHighLoad(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		steps := drawSteps(t)
		agg := NewAggregator(epoch, 0)
		prev := model.StressLow
		for i, s := range steps {
			before := agg.Stats()
			agg.Ingest(sample(s.level, s.jitter), s.dt)
			after := agg.Stats()

			wantEvents := before.MicroStressEvents
			if prev == model.StressLow && s.level == model.StressHigh {
				wantEvents++
			}
			if after.MicroStressEvents != wantEvents {
				t.Fatalf("step %d: expected %d events, got %d", i, wantEvents, after.MicroStressEvents)
			}

			credited := s.dt
			if i == 0 {
				credited = 0
			}
			wantHigh := before.HighLoadDuration
			if s.level == model.StressHigh {
				wantHigh += credited
			}
			if after.HighLoadDuration != wantHigh {
				t.Fatalf("step %d: expected high load %v, got %v", i, wantHigh, after.HighLoadDuration)
			}
			if after.HighLoadDuration < before.HighLoadDuration {
				t.Fatalf("step %d: high load decreased", i)
			}
			prev = s.level
		}
	})
}
