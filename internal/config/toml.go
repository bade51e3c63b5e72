// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Absent keys stay nil.
type FileConfig struct {
	Engine  EngineConfig  `toml:"engine"`
	Speech  SpeechConfig  `toml:"speech"`
	Server  ServerConfig  `toml:"server"`
	History HistoryConfig `toml:"history"`
}

// EngineConfig maps the thresholds of the focus engine.
type EngineConfig struct {
	ActivityThreshold *float64 `toml:"activity-threshold"`
	IdleAfter         *string  `toml:"idle-after"`
	ResetCooldown     *string  `toml:"reset-cooldown"`
	ResetDuration     *string  `toml:"reset-duration"`
	MaxSampleGap      *string  `toml:"max-sample-gap"`
	ShieldStart       *float64 `toml:"shield-start"`
	Seed              *int64   `toml:"seed"`
}

// SpeechConfig maps voice settings.
type SpeechConfig struct {
	Muted   *bool    `toml:"muted"`
	Command *string  `toml:"command"`
	Args    []string `toml:"args"`
}

// ServerConfig maps the HTTP control surface.
type ServerConfig struct {
	Listen         *string `toml:"listen"`
	CalibrationURL *string `toml:"calibration-url"`
}

// HistoryConfig maps the report archive.
type HistoryConfig struct {
	Archive *bool   `toml:"archive"`
	DB      *string `toml:"db"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validateDurations(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// ParseDuration parses an optional duration value. A nil value yields nil.
func ParseDuration(key string, value *string) (*time.Duration, error) {
	if value == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &d, nil
}

func (c FileConfig) validateDurations() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"engine.idle-after", c.Engine.IdleAfter},
		{"engine.reset-cooldown", c.Engine.ResetCooldown},
		{"engine.reset-duration", c.Engine.ResetDuration},
		{"engine.max-sample-gap", c.Engine.MaxSampleGap},
	}
	for _, f := range fields {
		if _, err := ParseDuration(f.key, f.value); err != nil {
			return err
		}
	}
	return nil
}
