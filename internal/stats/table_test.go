package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"
)

func TestTextTableAlignsColumns(t *testing.T) {
	table := textTable{
		headers: []string{"Profile", "Score", "Minutes"},
		rows: [][]string{
			{"BALANCED", "91", "12.5"},
			{"HIGH_STRAIN", "8", "3.0"},
		},
		right: map[int]bool{1: true, 2: true},
	}

	lines := table.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Profile      Score  Minutes" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "BALANCED        91     12.5" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "HIGH_STRAIN      8      3.0" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTextTableWideRunes(t *testing.T) {
	table := textTable{headers: []string{"Note", "Score"}, rows: [][]string{{"焦点", "1"}}}
	lines := table.lines()
	if lines[1] != "焦点  1" {
		t.Fatalf("expected wide runes to count double, got %q", lines[1])
	}
	if (textTable{}).lines() != nil {
		t.Fatalf("expected no lines for an empty table")
	}
}

func TestRenderHistoryTable(t *testing.T) {
	reports := []model.ArchivedReport{
		{
			ID:                "0f8c2a9e-4c1b-4c55-9a7d-2f4a5b6c7d8e",
			EndedAt:           time.Date(2026, 3, 1, 10, 30, 0, 0, time.Local),
			DurationMs:        600000,
			MicroStressEvents: 3,
			AverageFocus:      72,
			Score:             75,
			Profile:           model.ProfileModerate,
		},
	}
	var buf bytes.Buffer
	if err := RenderHistoryTable(&buf, reports); err != nil {
		t.Fatalf("render history table: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Ended", "MODERATE", "75", "10.0", "0f8c2a9e", "72%", "2026-03-01 10:30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table output:\n%s", want, out)
		}
	}
}

func TestRenderHistorySummary(t *testing.T) {
	reports := []model.ArchivedReport{
		{DurationMs: 60000, Score: 80, AverageFocus: 90, MicroStressEvents: 1},
		{DurationMs: 120000, Score: 60, AverageFocus: 70, MicroStressEvents: 2},
	}
	var buf bytes.Buffer
	if err := RenderHistorySummary(&buf, reports); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Total time: 3.0 min", "Avg wellbeing score: 70.0", "Best wellbeing score: 80", "Avg focus: 80.0%", "Micro-stress events: 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
}
