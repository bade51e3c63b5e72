// Package signal turns raw telemetry samples into bounded focus and stress scores.
package signal

import "github.com/verte-zerg/neurocursor/internal/model"

const (
	jitterPerFocusPoint = 3.0
	steadyFocusFloor    = 70.0
	highStrainFloor     = 70.0
	elevatedStrainFloor = 40.0
)

// Normalize derives the focus and stress scores of a sample. Out-of-range input is clamped.
func Normalize(sample model.TelemetrySample) model.DerivedScores {
	focus := Clamp(100-sample.Jitter/jitterPerFocusPoint, 0, 100)
	return model.DerivedScores{
		FocusScore:  focus,
		StressScore: 100 - focus,
	}
}

// FocusDescriptor labels the current focus state for display.
func FocusDescriptor(level model.StressLevel, focus float64) string {
	switch {
	case level == model.StressHigh:
		return "Elevated load"
	case focus > steadyFocusFloor:
		return "Steady focus"
	default:
		return "Light focus"
	}
}

// StrainLabel buckets a stress score into a short label.
func StrainLabel(stress float64) string {
	switch {
	case stress > highStrainFloor:
		return "High strain"
	case stress > elevatedStrainFloor:
		return "Elevated"
	default:
		return "Light load"
	}
}

// Clamp restricts v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
