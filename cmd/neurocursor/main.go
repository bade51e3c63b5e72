// Package main provides the CLI entrypoint for neurocursor.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/config"
	"github.com/verte-zerg/neurocursor/internal/gauge"
	"github.com/verte-zerg/neurocursor/internal/idle"
	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/session"
	"github.com/verte-zerg/neurocursor/internal/stats"
)

const (
	defaultListen      = "127.0.0.1:5050"
	defaultInput       = "-"
	defaultTrendWindow = 5
	defaultPlotHeight  = 10
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "neurocursor",
		Short:         "Cursor telemetry focus coach",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runLiveCmd,
	}
	addEngineFlags(rootCmd)
	addRunFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// newRunCmd is the explicit form of the root command.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the coach against live telemetry",
		Args:  cobra.NoArgs,
		RunE:  runLiveCmd,
	}
	addEngineFlags(cmd)
	addRunFlags(cmd)
	return cmd
}

// engineFlags are shared by the live and replay commands.
type engineFlags struct {
	activityThreshold float64
	idleAfter         time.Duration
	resetCooldown     time.Duration
	resetDuration     time.Duration
	maxSampleGap      time.Duration
	shieldStart       float64
	seed              int64
}

var (
	engineOpts engineFlags

	runMuted          bool
	runSpeechCommand  string
	runListen         string
	runCalibrationURL string
	runArchive        bool
	runDB             string
	runInput          string
	runNoTUI          bool
	runDebug          bool
)

func addEngineFlags(cmd *cobra.Command) {
	defaults := session.DefaultConfig()
	cmd.Flags().Float64Var(&engineOpts.activityThreshold, "activity-threshold", defaults.ActivityThreshold, "velocity above which the cursor counts as moving")
	cmd.Flags().DurationVar(&engineOpts.idleAfter, "idle-after", defaults.IdleAfter, "time without movement before the user counts as idle")
	cmd.Flags().DurationVar(&engineOpts.resetCooldown, "reset-cooldown", defaults.ResetCooldown, "minimum spacing between guided resets")
	cmd.Flags().DurationVar(&engineOpts.resetDuration, "reset-duration", defaults.ResetDuration, "length of a guided reset")
	cmd.Flags().DurationVar(&engineOpts.maxSampleGap, "max-sample-gap", defaults.MaxSampleGap, "longest gap between samples that still counts toward the session")
	cmd.Flags().Float64Var(&engineOpts.shieldStart, "shield-start", defaults.ShieldStart, "initial neural shield HP (above 0, up to 100)")
	cmd.Flags().Int64Var(&engineOpts.seed, "seed", 0, "seed for line and tip selection (0 = random)")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runMuted, "muted", false, "start with voice muted")
	cmd.Flags().StringVar(&runSpeechCommand, "speech-command", "", "text-to-speech command, e.g. espeak or say")
	cmd.Flags().StringVar(&runListen, "listen", defaultListen, "HTTP listen address (empty disables the server)")
	cmd.Flags().StringVar(&runCalibrationURL, "calibration-url", "", "upstream URL to POST calibration requests to")
	cmd.Flags().BoolVar(&runArchive, "archive", true, "archive session reports to the history database")
	cmd.Flags().StringVar(&runDB, "db", config.DefaultDBPath(), "history database path")
	cmd.Flags().StringVar(&runInput, "input", defaultInput, "NDJSON telemetry source (- for stdin, empty to disable)")
	cmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "run headless even on a terminal")
	cmd.Flags().BoolVar(&runDebug, "debug", false, "enable debug logging")
}

// applyEngineConfig overlays the [engine] section on flags that were not set explicitly.
func applyEngineConfig(cmd *cobra.Command, fileCfg config.FileConfig) error {
	applyFloatConfig(cmd, "activity-threshold", &engineOpts.activityThreshold, fileCfg.Engine.ActivityThreshold)
	if err := applyDurationConfig(cmd, "idle-after", &engineOpts.idleAfter, fileCfg.Engine.IdleAfter); err != nil {
		return err
	}
	if err := applyDurationConfig(cmd, "reset-cooldown", &engineOpts.resetCooldown, fileCfg.Engine.ResetCooldown); err != nil {
		return err
	}
	if err := applyDurationConfig(cmd, "reset-duration", &engineOpts.resetDuration, fileCfg.Engine.ResetDuration); err != nil {
		return err
	}
	if err := applyDurationConfig(cmd, "max-sample-gap", &engineOpts.maxSampleGap, fileCfg.Engine.MaxSampleGap); err != nil {
		return err
	}
	applyFloatConfig(cmd, "shield-start", &engineOpts.shieldStart, fileCfg.Engine.ShieldStart)
	applyInt64Config(cmd, "seed", &engineOpts.seed, fileCfg.Engine.Seed)
	return nil
}

func (f engineFlags) sessionConfig() session.Config {
	return session.Config{
		ActivityThreshold: f.activityThreshold,
		IdleAfter:         f.idleAfter,
		ResetCooldown:     f.resetCooldown,
		ResetDuration:     f.resetDuration,
		MaxSampleGap:      f.maxSampleGap,
		ShieldStart:       f.shieldStart,
	}
}

func validateEngineConfig(cfg session.Config) error {
	if cfg.ActivityThreshold < 0 {
		return fmt.Errorf("--activity-threshold must be >= 0")
	}
	if cfg.IdleAfter <= 0 {
		return fmt.Errorf("--idle-after must be > 0")
	}
	if cfg.ResetCooldown < 0 {
		return fmt.Errorf("--reset-cooldown must be >= 0")
	}
	if cfg.ResetDuration < time.Second {
		return fmt.Errorf("--reset-duration must be at least 1s")
	}
	if cfg.MaxSampleGap <= 0 {
		return fmt.Errorf("--max-sample-gap must be > 0")
	}
	if cfg.ShieldStart <= 0 || cfg.ShieldStart > 100 {
		return fmt.Errorf("--shield-start must be above 0 and at most 100")
	}
	return nil
}

func validateCalibrationURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("--calibration-url must be an http(s) URL")
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil || cmd.Flags().Changed(name) {
		return nil
	}
	d, err := config.ParseDuration(name, value)
	if err != nil {
		return err
	}
	*target = *d
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# neurocursor configuration
# Uncomment a value to enable it. CLI flags override config values.

[engine]
# activity-threshold = %.1f   # Velocity above which the cursor counts as moving
# idle-after = %q           # Time without movement before the user counts as idle
# reset-cooldown = %q       # Minimum spacing between guided resets
# reset-duration = %q       # Length of a guided reset
# max-sample-gap = %q      # Longest sample gap that still counts toward the session
# shield-start = %.1f         # Initial neural shield HP (above 0, up to 100)
# seed = 0                    # Seed for line and tip selection (0 = random)

[speech]
# muted = false               # Start muted; edits are picked up while running
# command = "espeak"          # Text-to-speech command
# args = ["-s", "160"]        # Extra arguments placed before the text

[server]
# listen = %q     # HTTP listen address ("" disables the server)
# calibration-url = "http://localhost:5000/calibrate"

[history]
# archive = true              # Archive session reports
# db = %q
`,
		idle.DefaultActivityThreshold,
		idle.DefaultIdleAfter.String(),
		coach.DefaultResetCooldown.String(),
		coach.DefaultResetDuration.String(),
		stats.DefaultMaxSampleGap.String(),
		gauge.DefaultShieldStart,
		defaultListen,
		config.DefaultDBPath(),
	)
}

// newLogger builds the process logger. Debug lowers the level to include
// per-event records.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// logEvents records engine activity. Samples are only logged at debug level.
func logEvents(logger *slog.Logger) session.Listener {
	return func(ev session.Event) {
		switch ev.Kind {
		case session.EventSample:
			logger.Debug("sample", "stress_level", ev.Sample.StressLevel.String(), "focus", ev.Scores.FocusScore, "idle", ev.Idle)
		case session.EventSpoke:
			logger.Info("coach spoke", "theme", ev.Theme.String(), "line", ev.Line)
		case session.EventResetRefused:
			logger.Debug("guided reset refused", "trigger", string(ev.Trigger), "reason", ev.Reason.String())
		case session.EventResetEnded:
			logger.Info("guided reset ended", "skipped", ev.Skipped)
		case session.EventSessionStarted:
			if ev.Archived != nil {
				logger.Info("session archived", "id", ev.Archived.ID, "score", ev.Archived.Score, "profile", ev.Archived.Profile.String())
			}
		case session.EventVoiceChanged:
			logger.Info("voice changed", "muted", ev.Muted)
		default:
			logger.Debug("engine event", "kind", ev.Kind.String())
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func profileColor(p model.Profile) *color.Color {
	switch p {
	case model.ProfileBalanced:
		return color.New(color.FgGreen, color.Bold)
	case model.ProfileModerate:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// colorizeSummary highlights the profile line of a formatted report.
func colorizeSummary(summary string, profile model.Profile) string {
	c := profileColor(profile)
	lines := strings.Split(summary, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "Profile: ") {
			lines[i] = c.Sprint(line)
		}
	}
	return strings.Join(lines, "\n")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
