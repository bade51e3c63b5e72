// Package stats contains session statistics, wellbeing reports and their rendering.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/neurocursor/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline on a fixed 0-100 scale.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range values {
		pos := v / 100
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderHistorySummary prints aggregate figures over archived session reports.
func RenderHistorySummary(w io.Writer, reports []model.ArchivedReport) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalScore, totalFocus, totalMinutes float64
	bestScore := 0
	events := 0
	for _, r := range reports {
		totalScore += float64(r.Score)
		totalFocus += r.AverageFocus
		totalMinutes += float64(r.DurationMs) / 60000.0
		events += r.MicroStressEvents
		if r.Score > bestScore {
			bestScore = r.Score
		}
	}
	count := float64(len(reports))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(reports)),
		fmt.Sprintf("Total time: %.1f min", totalMinutes),
		fmt.Sprintf("Avg wellbeing score: %.1f", totalScore/count),
		fmt.Sprintf("Best wellbeing score: %d", bestScore),
		fmt.Sprintf("Avg focus: %.1f%%", totalFocus/count),
		fmt.Sprintf("Micro-stress events: %d", events),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend plots focus and stress over a sample sequence.
func RenderTrend(w io.Writer, focus, stress []float64, window, totalWidth, height int, useColor bool) error {
	if len(focus) == 0 {
		return nil
	}
	chart := Chart{Title: "Focus Trend", Width: plotColumns(totalWidth), Height: height, Color: useColor}
	return chart.Render(w,
		Series{Name: "Focus", Values: MovingAverage(focus, window)},
		Series{Name: "Stress", Values: MovingAverage(stress, window)},
	)
}

// RenderHistoryTable prints one line per archived report, newest last.
func RenderHistoryTable(w io.Writer, reports []model.ArchivedReport) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers, rows := HistoryRows(reports)
	table := textTable{headers: headers, rows: rows, right: map[int]bool{2: true, 3: true, 5: true, 6: true}}
	for _, line := range table.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRows converts archived reports into table cells.
func HistoryRows(reports []model.ArchivedReport) ([]string, [][]string) {
	headers := []string{"Ended", "Profile", "Score", "Minutes", "ID", "Events", "Focus"}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.Profile.String(),
			fmt.Sprintf("%d", r.Score),
			fmt.Sprintf("%.1f", float64(r.DurationMs)/60000.0),
			shortID(r.ID),
			fmt.Sprintf("%d", r.MicroStressEvents),
			fmt.Sprintf("%.0f%%", r.AverageFocus),
		})
	}
	return headers, rows
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// RenderHistoryTrend plots wellbeing score and average focus across archived sessions.
func RenderHistoryTrend(w io.Writer, reports []model.ArchivedReport, window, totalWidth, height int, useColor bool) error {
	if len(reports) == 0 {
		return nil
	}
	scores := make([]float64, len(reports))
	focus := make([]float64, len(reports))
	for i, r := range reports {
		scores[i] = float64(r.Score)
		focus[i] = r.AverageFocus
	}
	chart := Chart{Title: "Session Trend", Width: plotColumns(totalWidth), Height: height, Color: useColor}
	return chart.Render(w,
		Series{Name: "Score", Values: MovingAverage(scores, window)},
		Series{Name: "Focus", Values: MovingAverage(focus, window)},
	)
}

// plotColumns leaves the width to the terminal when totalWidth is unknown.
func plotColumns(totalWidth int) int {
	if totalWidth <= 0 {
		return 0
	}
	return chartColumns(totalWidth)
}
