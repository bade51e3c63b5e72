package server

import (
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/session"
)

type stateView struct {
	SessionID        string    `json:"session_id"`
	StartedAt        time.Time `json:"started_at"`
	DurationMs       int64     `json:"duration_ms"`
	Velocity         float64   `json:"velocity"`
	Jitter           float64   `json:"jitter"`
	StressLevel      string    `json:"stress_level"`
	FocusScore       float64   `json:"focus_score"`
	StressScore      float64   `json:"stress_score"`
	Descriptor       string    `json:"descriptor"`
	Idle             bool      `json:"idle"`
	MicroStress      int       `json:"micro_stress_events"`
	HighLoadMs       int64     `json:"high_load_ms"`
	SampleCount      int       `json:"sample_count"`
	AverageFocus     float64   `json:"average_focus"`
	ShieldHP         float64   `json:"shield_hp"`
	BreakCharge      float64   `json:"break_charge"`
	SecondsToBreak   float64   `json:"seconds_to_break"`
	ResetActive      bool      `json:"reset_active"`
	ResetRemaining   int       `json:"reset_remaining"`
	Tip              tipView   `json:"tip"`
	Calibrating      bool      `json:"calibrating"`
	CoachActive      bool      `json:"coach_active"`
	LearningProgress int       `json:"learning_progress"`
	Muted            bool      `json:"muted"`
}

type tipView struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Action string `json:"action"`
}

func newStateView(s session.State) stateView {
	return stateView{
		SessionID:        s.SessionID,
		StartedAt:        s.StartedAt,
		DurationMs:       s.Duration.Milliseconds(),
		Velocity:         s.Sample.Velocity,
		Jitter:           s.Sample.Jitter,
		StressLevel:      s.Sample.StressLevel.String(),
		FocusScore:       s.Scores.FocusScore,
		StressScore:      s.Scores.StressScore,
		Descriptor:       s.Descriptor,
		Idle:             s.Idle,
		MicroStress:      s.Stats.MicroStressEvents,
		HighLoadMs:       s.Stats.HighLoadDuration.Milliseconds(),
		SampleCount:      s.Stats.SampleCount,
		AverageFocus:     s.Stats.AverageFocus,
		ShieldHP:         s.Shield,
		BreakCharge:      s.Charge,
		SecondsToBreak:   s.SecondsToBreak,
		ResetActive:      s.Reset.Active,
		ResetRemaining:   s.Reset.Remaining,
		Tip:              tipView{Title: s.Tip.Title, Body: s.Tip.Body, Action: s.Tip.Action},
		Calibrating:      s.Calibrating,
		CoachActive:      s.CoachActive,
		LearningProgress: s.Sample.LearningProgress,
		Muted:            s.Muted,
	}
}

type reportView struct {
	Score          int     `json:"score"`
	Profile        string  `json:"profile"`
	ProfileLabel   string  `json:"profile_label"`
	Recommendation string  `json:"recommendation"`
	TotalMinutes   float64 `json:"total_minutes"`
	HighFraction   float64 `json:"high_fraction"`
	AverageFocus   float64 `json:"average_focus"`
	LoadIndex      int     `json:"load_index"`
	Summary        string  `json:"summary"`
}

func newReportView(r model.WellbeingReport) reportView {
	return reportView{
		Score:          r.Score,
		Profile:        r.Profile.String(),
		ProfileLabel:   r.Profile.Label(),
		Recommendation: r.RecommendationText,
		TotalMinutes:   r.TotalMinutes,
		HighFraction:   r.HighFraction,
		AverageFocus:   r.AverageFocus,
		LoadIndex:      r.LoadIndex,
		Summary:        r.FormattedSummary,
	}
}
