// ABOUTME: YAML-backed server configuration with sensible defaults for every field.
// ABOUTME: Durations are written in Go notation ("24h", "15m") and parsed on unmarshal.

package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the upload server configuration. Zero values fall back to the
// defaults from DefaultConfig.
type Config struct {
	Addr            string   `yaml:"addr"`
	DataDir         string   `yaml:"data_dir"`
	MaxSessions     int      `yaml:"max_sessions"`
	SessionTTL      Duration `yaml:"session_ttl"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	MaxChunkBytes   int64    `yaml:"max_chunk_bytes"`
}

// Duration wraps time.Duration so YAML values like "24h" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std converts the YAML duration wrapper back to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the configuration used when no file is present.
// Abandoned sessions are reaped after 24 hours of inactivity.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:2389",
		DataDir:         "data",
		MaxSessions:     200,
		SessionTTL:      Duration(24 * time.Hour),
		CleanupInterval: Duration(15 * time.Minute),
		MaxChunkBytes:   16 << 20, // generous headroom over the 1 MiB default chunk
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error: the defaults are returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = def.MaxSessions
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.MaxChunkBytes <= 0 {
		c.MaxChunkBytes = def.MaxChunkBytes
	}
	return c
}
