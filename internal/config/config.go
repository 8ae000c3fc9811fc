// Package config loads the playback core's tunable parameters.
//
// The seek tolerances and retry delays are empirically chosen against the
// target engine's observed behavior, not load-bearing constants, so all of
// them can be overridden from a TOML file. Files are tried in order of
// priority (last wins): the XDG config dir, then ./config.toml.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	Stream   StreamConfig   `koanf:"stream"`
	Playback PlaybackConfig `koanf:"playback"`
	Seek     SeekConfig     `koanf:"seek"`
	Preview  PreviewConfig  `koanf:"preview"`
	Log      LogConfig      `koanf:"log"`
}

// StreamConfig holds backend streaming settings.
type StreamConfig struct {
	// BaseURL is the backend base URL serving the /stream endpoint.
	BaseURL string `koanf:"base_url"`
}

// PlaybackConfig holds main playback settings.
type PlaybackConfig struct {
	// Volume is the initial volume (0.0 to 1.0).
	Volume float64 `koanf:"volume"`

	// PreRollSeconds is the lead-in subtracted from jump-to-phrase targets.
	PreRollSeconds float64 `koanf:"pre_roll_seconds"`
}

// SeekConfig holds the forced-seek protocol tunables.
type SeekConfig struct {
	// RetryDelaysMS is the correction-check schedule in milliseconds,
	// measured from the moment a seek is first issued.
	RetryDelaysMS []int `koanf:"retry_delays_ms"`

	// DriftToleranceSeconds is how far the reported position may drift from
	// the target before a check re-applies it.
	DriftToleranceSeconds float64 `koanf:"drift_tolerance_seconds"`

	// ResetThresholdSeconds: positions reported below this while a forced
	// seek is active are treated as spurious resets.
	ResetThresholdSeconds float64 `koanf:"reset_threshold_seconds"`
}

// PreviewConfig holds audition settings.
type PreviewConfig struct {
	// AutoStopSeconds unconditionally stops a preview after this long.
	AutoStopSeconds float64 `koanf:"auto_stop_seconds"`

	// PreRollSeconds is the lead-in subtracted from preview timestamps.
	PreRollSeconds float64 `koanf:"pre_roll_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

// Default returns the configuration with every tunable at its empirically
// validated default.
func Default() Config {
	return Config{
		Stream: StreamConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		Playback: PlaybackConfig{
			Volume:         0.8,
			PreRollSeconds: 3,
		},
		Seek: SeekConfig{
			RetryDelaysMS:         []int{50, 150, 300},
			DriftToleranceSeconds: 1.5,
			ResetThresholdSeconds: 0.5,
		},
		Preview: PreviewConfig{
			AutoStopSeconds: 10,
			PreRollSeconds:  3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration files over the defaults. Missing files are fine;
// a file that exists but fails to parse is an error.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Stream.BaseURL = strings.TrimSuffix(cfg.Stream.BaseURL, "/")

	return &cfg, nil
}

// RetryDelays converts the configured schedule to durations.
func (c *SeekConfig) RetryDelays() []time.Duration {
	delays := make([]time.Duration, 0, len(c.RetryDelaysMS))
	for _, ms := range c.RetryDelaysMS {
		if ms <= 0 {
			continue
		}
		delays = append(delays, time.Duration(ms)*time.Millisecond)
	}
	return delays
}

// AutoStop returns the preview auto-stop timeout as a duration.
func (c *PreviewConfig) AutoStop() time.Duration {
	return time.Duration(c.AutoStopSeconds * float64(time.Second))
}

func configPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, "cuedeck", "config.toml"),
		"config.toml",
	}
}
