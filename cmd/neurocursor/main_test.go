package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/neurocursor/internal/config"
	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/session"
	"github.com/verte-zerg/neurocursor/internal/store"
)

func isolateXDG(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	return dir
}

func TestValidateEngineConfig(t *testing.T) {
	base := session.DefaultConfig()
	if err := validateEngineConfig(base); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cases := []struct {
		name   string
		mutate func(*session.Config)
		want   string
	}{
		{"threshold", func(c *session.Config) { c.ActivityThreshold = -1 }, "--activity-threshold"},
		{"idle", func(c *session.Config) { c.IdleAfter = 0 }, "--idle-after"},
		{"cooldown", func(c *session.Config) { c.ResetCooldown = -time.Second }, "--reset-cooldown"},
		{"duration", func(c *session.Config) { c.ResetDuration = 500 * time.Millisecond }, "--reset-duration"},
		{"gap", func(c *session.Config) { c.MaxSampleGap = 0 }, "--max-sample-gap"},
		{"shield", func(c *session.Config) { c.ShieldStart = 101 }, "--shield-start"},
		{"shield zero", func(c *session.Config) { c.ShieldStart = 0 }, "--shield-start"},
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		err := validateEngineConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %s error, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateRunOptions(t *testing.T) {
	opts := runOptions{Engine: session.DefaultConfig(), Archive: true, DBPath: "x.db", Input: "-"}
	if err := validateRunOptions(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := opts
	bad.DBPath = ""
	if err := validateRunOptions(bad); err == nil {
		t.Fatalf("expected db error")
	}
	bad = opts
	bad.CalibrationURL = "ftp://upstream"
	if err := validateRunOptions(bad); err == nil || !strings.Contains(err.Error(), "--calibration-url") {
		t.Fatalf("expected calibration url error, got %v", err)
	}
	bad = opts
	bad.Input = ""
	if err := validateRunOptions(bad); err == nil {
		t.Fatalf("expected error without any telemetry source")
	}
}

func TestApplyConfigRespectsChangedFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--idle-after", "9s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	idleAfter := "1m"
	cooldown := "10m"
	shield := 40.0
	fileCfg := config.FileConfig{Engine: config.EngineConfig{
		IdleAfter:     &idleAfter,
		ResetCooldown: &cooldown,
		ShieldStart:   &shield,
	}}
	if err := applyEngineConfig(cmd, fileCfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if engineOpts.idleAfter != 9*time.Second {
		t.Fatalf("flag should win, got %v", engineOpts.idleAfter)
	}
	if engineOpts.resetCooldown != 10*time.Minute {
		t.Fatalf("config should apply, got %v", engineOpts.resetCooldown)
	}
	if engineOpts.shieldStart != 40 {
		t.Fatalf("config should apply, got %v", engineOpts.shieldStart)
	}
}

func TestApplyDurationConfigRejectsGarbage(t *testing.T) {
	cmd := newRootCmd()
	value := "soon"
	var target time.Duration
	if err := applyDurationConfig(cmd, "idle-after", &target, &value); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDefaultConfigTemplateUncommentsToDefaults(t *testing.T) {
	isolateXDG(t)
	assignment := regexp.MustCompile(`^# ([a-z-]+ = .*)$`)
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if m := assignment.FindStringSubmatch(line); m != nil {
			line = m[1]
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template should decode once uncommented: %v", err)
	}
	if cfg.Engine.IdleAfter == nil || *cfg.Engine.IdleAfter != "3s" {
		t.Fatalf("unexpected idle-after %v", cfg.Engine.IdleAfter)
	}
	if cfg.Server.Listen == nil || *cfg.Server.Listen != defaultListen {
		t.Fatalf("unexpected listen %v", cfg.Server.Listen)
	}
	if cfg.Speech.Command == nil || *cfg.Speech.Command != "espeak" || len(cfg.Speech.Args) != 2 {
		t.Fatalf("unexpected speech section %+v", cfg.Speech)
	}
	if cfg.History.DB == nil || *cfg.History.DB != config.DefaultDBPath() {
		t.Fatalf("unexpected db %v", cfg.History.DB)
	}
}

func TestColorizeSummaryKeepsText(t *testing.T) {
	summary := "Title\nProfile: Balanced & sustainable\nEnd"
	out := colorizeSummary(summary, model.ProfileBalanced)
	if !strings.Contains(out, "Profile: Balanced & sustainable") || !strings.HasPrefix(out, "Title\n") {
		t.Fatalf("unexpected output %q", out)
	}
}

func writeRecording(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.ndjson")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func TestReplayPrintsReport(t *testing.T) {
	dir := isolateXDG(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < 10; i++ {
		at := start.Add(time.Duration(i) * time.Second).Format(time.RFC3339)
		lines = append(lines, fmt.Sprintf(`{"at":%q,"velocity":20,"jitter":30,"stress_level":"HIGH","ai_active":true}`, at))
	}
	lines = append(lines, "not json")
	path := writeRecording(t, lines)
	db := filepath.Join(dir, "history.db")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"replay", path, "--plain", "--archive", "--db", db})
	if err := root.Execute(); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Neuro-Cursor Session Report", "Micro-stress events: 1", "Packets: 10 (skipped 1)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}

	st, err := store.Open(db)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			t.Fatalf("close db: %v", cerr)
		}
	}()
	reports, err := st.ListReports(context.Background(), model.HistoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 || reports[0].HighLoadMs != 9000 || reports[0].SampleCount != 10 {
		t.Fatalf("unexpected archive %+v", reports)
	}
}

func TestReplayRejectsEmptyRecording(t *testing.T) {
	isolateXDG(t)
	path := writeRecording(t, []string{"", "garbage"})
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"replay", path})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "no telemetry packets") {
		t.Fatalf("expected empty recording error, got %v", err)
	}
}

func TestFirstTimestamp(t *testing.T) {
	fallback := time.Unix(1_700_000_000, 0)
	data := []byte("junk\n{\"at\":\"2026-03-01T09:00:00Z\",\"velocity\":1}\n")
	if got := firstTimestamp(data, fallback); !got.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first timestamp %v", got)
	}
	if got := firstTimestamp([]byte(`{"velocity":1}`), fallback); !got.Equal(fallback) {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestParseHistoryFilter(t *testing.T) {
	filter, err := parseHistoryFilter("2026-03-01", 3)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if filter.Since == nil || filter.Last != 3 {
		t.Fatalf("unexpected filter %+v", filter)
	}
	if _, err := parseHistoryFilter("03/01/2026", 0); err == nil {
		t.Fatalf("expected since error")
	}
	if _, err := parseHistoryFilter("", -1); err == nil {
		t.Fatalf("expected last error")
	}
}

func TestPrintHistory(t *testing.T) {
	ended := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	reports := []model.ArchivedReport{
		{ID: "first-session", EndedAt: ended, DurationMs: 600000, Score: 75, Profile: model.ProfileModerate, AverageFocus: 72},
		{ID: "second-session", EndedAt: ended.Add(time.Hour), DurationMs: 300000, Score: 90, Profile: model.ProfileBalanced, AverageFocus: 88},
	}
	var buf bytes.Buffer
	if err := printHistory(&buf, reports, 1, 80); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "MODERATE", "BALANCED", "Latest: Balanced & sustainable (90/100)", "Session Trend"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunSubcommandMirrorsRoot(t *testing.T) {
	isolateXDG(t)
	root := newRootCmd()
	run, _, err := root.Find([]string{"run"})
	if err != nil || run.Name() != "run" {
		t.Fatalf("expected run subcommand, got %v (%v)", run, err)
	}
	for _, name := range []string{"listen", "idle-after", "muted", "no-tui"} {
		if run.Flags().Lookup(name) == nil {
			t.Fatalf("expected --%s on run", name)
		}
	}
	if got := run.Flags().Lookup("listen").DefValue; got != defaultListen {
		t.Fatalf("expected default listen %q, got %q", defaultListen, got)
	}
}
