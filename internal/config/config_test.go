package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.IdleAfter != nil || cfg.Speech.Muted != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected an error for an empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[engine]
activity-threshold = 40
idle-after = "5s"
reset-cooldown = "10m"
seed = 7

[speech]
muted = true
command = "espeak"
args = ["-s", "160"]

[server]
listen = "127.0.0.1:9000"

[history]
archive = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Engine.ActivityThreshold != 40 || *cfg.Engine.Seed != 7 {
		t.Fatalf("unexpected engine section %+v", cfg.Engine)
	}
	idle, err := ParseDuration("engine.idle-after", cfg.Engine.IdleAfter)
	if err != nil || *idle != 5*time.Second {
		t.Fatalf("unexpected idle-after %v (%v)", idle, err)
	}
	if cfg.Engine.ResetDuration != nil {
		t.Fatalf("absent keys must stay nil")
	}
	if !*cfg.Speech.Muted || *cfg.Speech.Command != "espeak" || strings.Join(cfg.Speech.Args, " ") != "-s 160" {
		t.Fatalf("unexpected speech section %+v", cfg.Speech)
	}
	if *cfg.Server.Listen != "127.0.0.1:9000" || cfg.Server.CalibrationURL != nil {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if *cfg.History.Archive {
		t.Fatalf("expected archive to be disabled")
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[engine]\nidle-after = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "engine.idle-after") {
		t.Fatalf("expected a named duration error, got %v", err)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	if got := DefaultConfigPath(); got != filepath.Join(dir, "cfg", "neurocursor", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join(dir, "data", "neurocursor", "history.db") {
		t.Fatalf("unexpected db path %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join(dir, "state", "neurocursor", "neurocursor.log") {
		t.Fatalf("unexpected log path %s", got)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[speech]\nmuted = false\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan FileConfig, 16)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- Watch(ctx, path, logger, func(cfg FileConfig) {
			select {
			case changes <- cfg:
			default:
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-changes:
			if cfg.Speech.Muted == nil || !*cfg.Speech.Muted {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch: %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("[speech]\nmuted = true\n"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		case <-deadline:
			t.Fatalf("config change was not observed")
		}
	}
}
