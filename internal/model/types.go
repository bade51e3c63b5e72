// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// StressLevel is the coarse classification supplied by the upstream classifier.
type StressLevel int

const (
	// StressLow means the classifier sees normal, in-flow movement.
	StressLow StressLevel = iota
	// StressHigh means the classifier flagged the movement as anomalous.
	StressHigh
)

func (l StressLevel) String() string {
	if l == StressHigh {
		return "HIGH"
	}
	return "LOW"
}

// ParseStressLevel maps the wire value to a StressLevel. Unknown values read as LOW.
func ParseStressLevel(s string) StressLevel {
	if strings.EqualFold(strings.TrimSpace(s), "HIGH") {
		return StressHigh
	}
	return StressLow
}

// TelemetrySample is one cursor measurement pushed by the telemetry source.
type TelemetrySample struct {
	Velocity         float64
	Jitter           float64
	StressLevel      StressLevel
	AIActive         bool
	LearningProgress int
}

// DerivedScores are computed per sample and never stored.
type DerivedScores struct {
	FocusScore  float64
	StressScore float64
}

// SessionStats captures the running counters of the current session.
type SessionStats struct {
	MicroStressEvents int
	HighLoadDuration  time.Duration
	SampleCount       int
	AverageFocus      float64
}

// NewSessionStats returns the counters of a session that has not seen any sample yet.
func NewSessionStats() SessionStats {
	return SessionStats{AverageFocus: 100}
}

// SessionSnapshot is an immutable copy of the session taken when a report is requested.
type SessionSnapshot struct {
	SessionID string
	StartedAt time.Time
	TakenAt   time.Time
	Stats     SessionStats
	Duration  time.Duration
}

// Profile is the qualitative bucket of a wellbeing score.
type Profile int

const (
	// ProfileBalanced covers scores of 80 and above.
	ProfileBalanced Profile = iota
	// ProfileModerate covers scores from 60 up to 80.
	ProfileModerate
	// ProfileHighStrain covers scores below 60.
	ProfileHighStrain
)

func (p Profile) String() string {
	switch p {
	case ProfileBalanced:
		return "BALANCED"
	case ProfileModerate:
		return "MODERATE"
	case ProfileHighStrain:
		return "HIGH_STRAIN"
	default:
		return "UNKNOWN"
	}
}

// Label is the human-readable profile name used in reports.
func (p Profile) Label() string {
	switch p {
	case ProfileBalanced:
		return "Balanced & sustainable"
	case ProfileModerate:
		return "Moderate cognitive load"
	case ProfileHighStrain:
		return "High strain - needs recovery"
	default:
		return "Unknown"
	}
}

// ParseProfile maps a stored profile name back to a Profile.
func ParseProfile(s string) Profile {
	switch s {
	case "BALANCED":
		return ProfileBalanced
	case "MODERATE":
		return ProfileModerate
	default:
		return ProfileHighStrain
	}
}

// WellbeingReport is derived from a snapshot and recomputed on every request.
type WellbeingReport struct {
	Score              int
	Profile            Profile
	RecommendationText string
	FormattedSummary   string

	TotalMinutes    float64
	HighLoadMinutes float64
	HighFraction    float64
	AverageFocus    float64
	LoadIndex       int
}

// ArchivedReport is an exported session report as stored in the history database.
type ArchivedReport struct {
	ID                string
	StartedAt         time.Time
	EndedAt           time.Time
	DurationMs        int64
	MicroStressEvents int
	HighLoadMs        int64
	SampleCount       int
	AverageFocus      float64
	Score             int
	Profile           Profile
	Summary           string
}

// HistoryFilter narrows the archived reports returned by the store.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}
