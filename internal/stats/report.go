package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/signal"
)

const (
	balancedFloor = 80
	moderateFloor = 60

	focusWeight    = 0.6
	highLoadWeight = 0.4

	summaryTitle = "Neuro-Cursor Session Report"
	disclaimer   = "Note: This is not a medical device. It reflects mouse movement patterns only, as a gentle signal for digital wellbeing and focus awareness."
)

var recommendations = map[model.Profile]string{
	model.ProfileBalanced:   "Your pattern suggests healthy focus with manageable spikes. Keep using short breaks and posture checks to maintain this.",
	model.ProfileModerate:   "You handled focus fairly well, but there were meaningful periods of high tension. Add one or two structured micro-breaks to protect energy.",
	model.ProfileHighStrain: "There were extended periods of overload. A longer break away from screens and some gentle movement would be helpful.",
}

// Generate reduces a snapshot into a wellbeing report. It never mutates its input.
func Generate(snapshot model.SessionSnapshot) model.WellbeingReport {
	durationMs := snapshot.Duration.Milliseconds()
	stats := snapshot.Stats

	totalMinutes := float64(maxInt64(durationMs, 1)) / 60000.0
	highFraction := 0.0
	if durationMs > 0 {
		highFraction = float64(stats.HighLoadDuration.Milliseconds()) / float64(durationMs)
	}
	highFraction = signal.Clamp(highFraction, 0, 1)
	highScore := (1 - highFraction) * 100

	avgFocus := 100.0
	if stats.SampleCount > 0 {
		avgFocus = stats.AverageFocus
	}

	score := int(signal.Clamp(math.Round(focusWeight*avgFocus+highLoadWeight*highScore), 0, 100))
	profile := ProfileFor(score)

	report := model.WellbeingReport{
		Score:              score,
		Profile:            profile,
		RecommendationText: recommendations[profile],
		TotalMinutes:       totalMinutes,
		HighLoadMinutes:    float64(stats.HighLoadDuration.Milliseconds()) / 60000.0,
		HighFraction:       highFraction,
		AverageFocus:       avgFocus,
		LoadIndex:          int(math.Round(highFraction * 100)),
	}
	report.FormattedSummary = FormatSummary(report, stats)
	return report
}

// ProfileFor buckets a wellbeing score.
func ProfileFor(score int) model.Profile {
	switch {
	case score >= balancedFloor:
		return model.ProfileBalanced
	case score >= moderateFloor:
		return model.ProfileModerate
	default:
		return model.ProfileHighStrain
	}
}

// FormatSummary renders the plain-text export of a report. The output is the
// clipboard/export contract and must stay byte-stable.
func FormatSummary(report model.WellbeingReport, stats model.SessionStats) string {
	var b strings.Builder
	b.WriteString(summaryTitle + "\n")
	b.WriteString(strings.Repeat("-", 28) + "\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Duration: %.1f min\n", report.TotalMinutes)
	fmt.Fprintf(&b, "Digital Wellbeing Score: %d/100\n", report.Score)
	fmt.Fprintf(&b, "Profile: %s\n", report.Profile.Label())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Micro-stress events: %d\n", stats.MicroStressEvents)
	fmt.Fprintf(&b, "Time in high load: %.1f min\n", report.HighLoadMinutes)
	fmt.Fprintf(&b, "Average focus score: %d%%\n", int(math.Round(report.AverageFocus)))
	fmt.Fprintf(&b, "Estimated nervous system load index: %d%%\n", report.LoadIndex)
	b.WriteString("\n")
	b.WriteString("Recommendation:\n")
	b.WriteString(report.RecommendationText + "\n")
	b.WriteString("\n")
	b.WriteString(disclaimer)
	return b.String()
}

// HighLoadLabel formats minutes in high load the way the live snapshot panel shows them.
func HighLoadLabel(minutes float64) string {
	if minutes < 0.1 {
		return "< 0.1 min"
	}
	return fmt.Sprintf("%.1f min", minutes)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
