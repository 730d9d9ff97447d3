// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration. Zero values are filled in by
// Defaults before the file overlay, so a partial YAML file is always
// acceptable.
type Config struct {
	Listen   string          `yaml:"listen"`
	LogLevel string          `yaml:"logLevel"`
	Resolve  ResolveConfig   `yaml:"resolve"`
	Playback PlaybackConfig  `yaml:"playback"`
	Cache    CacheConfig     `yaml:"cache"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	OTel     TelemetryConfig `yaml:"otel"`
}

// ResolveConfig tunes rendition discovery and probing.
type ResolveConfig struct {
	MarkerDir    string        `yaml:"markerDir"`
	ManifestName string        `yaml:"manifestName"`
	Extension    string        `yaml:"extension"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
	ProbeRate    float64       `yaml:"probeRate"`
	PositiveTTL  time.Duration `yaml:"positiveTTL"`
	NegativeTTL  time.Duration `yaml:"negativeTTL"`
}

// PlaybackConfig tunes the playback controller defaults served to clients.
type PlaybackConfig struct {
	WatchdogTimeout time.Duration `yaml:"watchdogTimeout"`
	EmbedDomains    []string      `yaml:"embedDomains"`
}

// CacheConfig selects the resolution cache backend.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // "memory" or "redis"
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig holds connection settings for the "redis" backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LedgerConfig controls the confirmed-rendition ledger and its
// revalidation worker.
type LedgerConfig struct {
	// Path is the badger directory. Empty selects an in-memory ledger.
	Path            string        `yaml:"path"`
	RevalidateEvery time.Duration `yaml:"revalidateEvery"`
	// ExportPath, when set, receives a JSON snapshot after each
	// revalidation sweep.
	ExportPath string `yaml:"exportPath"`
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // "grpc" or "http"
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns the configuration used when no file and no environment
// overrides are present.
func Defaults() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Resolve: ResolveConfig{
			MarkerDir:    ".hls",
			ManifestName: "playlist.m3u8",
			Extension:    ".mp4",
			ProbeTimeout: 5 * time.Second,
			ProbeRate:    10,
			PositiveTTL:  15 * time.Minute,
			NegativeTTL:  time.Minute,
		},
		Playback: PlaybackConfig{
			WatchdogTimeout: 4 * time.Second,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			CleanupInterval: time.Minute,
			Redis:           RedisConfig{Addr: "localhost:6379"},
		},
		Ledger: LedgerConfig{
			RevalidateEvery: 30 * time.Minute,
		},
		OTel: TelemetryConfig{
			Protocol: "grpc",
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (if non-empty), overlaid by VODBRIDGE_* environment
// variables. The result is validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work at runtime. It returns
// the first problem found.
func Validate(cfg Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if cfg.Resolve.MarkerDir == "" || strings.ContainsAny(cfg.Resolve.MarkerDir, "/\\") {
		return fmt.Errorf("invalid marker directory %q", cfg.Resolve.MarkerDir)
	}
	if cfg.Resolve.ManifestName == "" {
		return fmt.Errorf("manifest name must not be empty")
	}
	if !strings.HasPrefix(cfg.Resolve.Extension, ".") {
		return fmt.Errorf("extension %q must start with a dot", cfg.Resolve.Extension)
	}
	if cfg.Resolve.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	if cfg.Resolve.PositiveTTL <= 0 || cfg.Resolve.NegativeTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if cfg.Playback.WatchdogTimeout <= 0 {
		return fmt.Errorf("watchdog timeout must be positive")
	}
	for _, d := range cfg.Playback.EmbedDomains {
		if d == "" || strings.Contains(d, "/") {
			return fmt.Errorf("invalid embed domain %q", d)
		}
	}
	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires an address")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Ledger.RevalidateEvery <= 0 {
		return fmt.Errorf("revalidation cadence must be positive")
	}
	if cfg.OTel.Enabled {
		if cfg.OTel.Endpoint == "" {
			return fmt.Errorf("telemetry enabled without an endpoint")
		}
		if _, err := url.Parse(cfg.OTel.Endpoint); err != nil {
			return fmt.Errorf("invalid telemetry endpoint: %w", err)
		}
		switch cfg.OTel.Protocol {
		case "grpc", "http":
		default:
			return fmt.Errorf("unknown telemetry protocol %q", cfg.OTel.Protocol)
		}
	}
	return nil
}
