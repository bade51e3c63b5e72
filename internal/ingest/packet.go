// Package ingest decodes telemetry packets and feeds them to the engine.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
)

// Kind is the event type of a packet.
type Kind string

const (
	KindSample              Kind = "mouse_data"
	KindCalibrationStarted  Kind = "calibration_started"
	KindCalibrationFinished Kind = "calibration_done"
)

// ErrUnknownEvent is returned for packets with an unsupported event field.
var ErrUnknownEvent = errors.New("unknown event")

// Packet is the wire form of one telemetry line.
type Packet struct {
	Event            Kind       `json:"event,omitempty"`
	At               *time.Time `json:"at,omitempty"`
	Velocity         float64    `json:"velocity"`
	Jitter           float64    `json:"jitter"`
	StressLevel      string     `json:"stress_level"`
	AIActive         bool       `json:"ai_active"`
	LearningProgress int        `json:"learning_progress"`
}

// Decode parses one JSON packet.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("failed to decode packet: %w", err)
	}
	if p.Event == "" {
		p.Event = KindSample
	}
	switch p.Event {
	case KindSample, KindCalibrationStarted, KindCalibrationFinished:
	default:
		return Packet{}, fmt.Errorf("%w: %q", ErrUnknownEvent, p.Event)
	}
	return p, nil
}

// Sample converts the packet into a telemetry sample. Negative readings are clamped to zero.
func (p Packet) Sample() model.TelemetrySample {
	return model.TelemetrySample{
		Velocity:         nonNegative(p.Velocity),
		Jitter:           nonNegative(p.Jitter),
		StressLevel:      model.ParseStressLevel(p.StressLevel),
		AIActive:         p.AIActive,
		LearningProgress: p.LearningProgress,
	}
}

// Encode renders a sample in wire form.
func Encode(sample model.TelemetrySample, at time.Time) ([]byte, error) {
	p := Packet{
		Event:            KindSample,
		Velocity:         sample.Velocity,
		Jitter:           sample.Jitter,
		StressLevel:      sample.StressLevel.String(),
		AIActive:         sample.AIActive,
		LearningProgress: sample.LearningProgress,
	}
	if !at.IsZero() {
		p.At = &at
	}
	return json.Marshal(p)
}

// Sink receives decoded packets. *session.Engine implements it.
type Sink interface {
	Ingest(sample model.TelemetrySample, now time.Time)
	CalibrationStarted(now time.Time)
	CalibrationFinished(now time.Time)
}

// Apply delivers a packet to the sink at now.
func Apply(p Packet, sink Sink, now time.Time) {
	switch p.Event {
	case KindCalibrationStarted:
		sink.CalibrationStarted(now)
	case KindCalibrationFinished:
		sink.CalibrationFinished(now)
	default:
		sink.Ingest(p.Sample(), now)
	}
}

func nonNegative(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return v
}
