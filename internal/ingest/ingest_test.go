package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
)

type call struct {
	kind   Kind
	sample model.TelemetrySample
	at     time.Time
}

type recordingSink struct {
	calls []call
}

func (r *recordingSink) Ingest(sample model.TelemetrySample, now time.Time) {
	r.calls = append(r.calls, call{kind: KindSample, sample: sample, at: now})
}

func (r *recordingSink) CalibrationStarted(now time.Time) {
	r.calls = append(r.calls, call{kind: KindCalibrationStarted, at: now})
}

func (r *recordingSink) CalibrationFinished(now time.Time) {
	r.calls = append(r.calls, call{kind: KindCalibrationFinished, at: now})
}

func TestDecodeDefaultsAndClamps(t *testing.T) {
	p, err := Decode([]byte(`{"velocity":-3,"jitter":12.5,"stress_level":"HIGH","ai_active":true,"learning_progress":50}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Event != KindSample {
		t.Fatalf("expected default event, got %q", p.Event)
	}
	s := p.Sample()
	if s.Velocity != 0 || s.Jitter != 12.5 || s.StressLevel != model.StressHigh || !s.AIActive || s.LearningProgress != 50 {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestDecodeUnknownStressIsLow(t *testing.T) {
	p, err := Decode([]byte(`{"velocity":1,"jitter":1,"stress_level":"PANIC"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Sample().StressLevel != model.StressLow {
		t.Fatalf("expected LOW")
	}
}

func TestDecodeRejectsUnknownEvent(t *testing.T) {
	if _, err := Decode([]byte(`{"event":"reboot"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestRunSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"velocity":10,"jitter":3,"stress_level":"LOW"}`,
		`not json`,
		``,
		`{"event":"calibration_started"}`,
		`{"event":"calibration_done"}`,
	}, "\n")
	sink := &recordingSink{}
	fixed := time.Unix(100, 0)
	res, err := Run(context.Background(), strings.NewReader(input), sink, Options{Clock: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Lines != 5 || res.Packets != 3 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sink.calls) != 3 || sink.calls[1].kind != KindCalibrationStarted || sink.calls[2].kind != KindCalibrationFinished {
		t.Fatalf("unexpected calls %+v", sink.calls)
	}
	if !sink.calls[0].at.Equal(fixed) {
		t.Fatalf("expected live packets to use the clock")
	}
}

func TestRunReplayTimestamps(t *testing.T) {
	input := strings.Join([]string{
		`{"velocity":10,"jitter":3,"stress_level":"LOW","at":"2024-05-01T10:00:00Z"}`,
		`{"velocity":10,"jitter":3,"stress_level":"HIGH"}`,
		`{"velocity":10,"jitter":3,"stress_level":"HIGH","at":"2024-05-01T10:00:05Z"}`,
	}, "\n")
	sink := &recordingSink{}
	res, err := Run(context.Background(), strings.NewReader(input), sink, Options{Replay: true, Interval: time.Second})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	want := []time.Time{base, base.Add(time.Second), base.Add(5 * time.Second)}
	for i, c := range sink.calls {
		if !c.at.Equal(want[i]) {
			t.Fatalf("packet %d: expected %v, got %v", i, want[i], c.at)
		}
	}
	if res.Last.Sub(res.First) != 5*time.Second {
		t.Fatalf("unexpected span %v", res.Last.Sub(res.First))
	}
}

func TestRunReplayWithoutTimestamps(t *testing.T) {
	input := "{\"velocity\":1}\n{\"velocity\":2}\n"
	sink := &recordingSink{}
	start := time.Unix(5000, 0)
	if _, err := Run(context.Background(), strings.NewReader(input), sink, Options{Replay: true, Start: start}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sink.calls[0].at.Equal(start) || sink.calls[1].at.Sub(start) != DefaultReplayInterval {
		t.Fatalf("unexpected timestamps %+v", sink.calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocking, w := io.Pipe()
	defer w.Close()
	if _, err := Run(ctx, blocking, &recordingSink{}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	data, err := Encode(model.TelemetrySample{Velocity: 4, Jitter: 9, StressLevel: model.StressHigh}, at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.At == nil || !p.At.Equal(at) || p.Sample().StressLevel != model.StressHigh {
		t.Fatalf("unexpected packet %+v", p)
	}
}
