// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vodbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, ".hls", cfg.Resolve.MarkerDir)
	require.Equal(t, "playlist.m3u8", cfg.Resolve.ManifestName)
	require.Equal(t, ".mp4", cfg.Resolve.Extension)
	require.Equal(t, 5*time.Second, cfg.Resolve.ProbeTimeout)
	require.Equal(t, 15*time.Minute, cfg.Resolve.PositiveTTL)
	require.Equal(t, 4*time.Second, cfg.Playback.WatchdogTimeout)
	require.Equal(t, "memory", cfg.Cache.Backend)
	require.Equal(t, 30*time.Minute, cfg.Ledger.RevalidateEvery)
	require.False(t, cfg.OTel.Enabled)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
resolve:
  probeTimeout: 2s
playback:
  embedDomains: [youtube.com, vimeo.com]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Listen)
	require.Equal(t, 2*time.Second, cfg.Resolve.ProbeTimeout)
	require.Equal(t, []string{"youtube.com", "vimeo.com"}, cfg.Playback.EmbedDomains)
	// Untouched sections keep their defaults.
	require.Equal(t, ".hls", cfg.Resolve.MarkerDir)
	require.Equal(t, 4*time.Second, cfg.Playback.WatchdogTimeout)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "listne: \":9090\"\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VODBRIDGE_LISTEN", ":7070")
	t.Setenv("VODBRIDGE_WATCHDOG_TIMEOUT", "250ms")
	t.Setenv("VODBRIDGE_EMBED_DOMAINS", "youtube.com, kinescope.io")
	t.Setenv("VODBRIDGE_REDIS_DB", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":7070", cfg.Listen)
	require.Equal(t, 250*time.Millisecond, cfg.Playback.WatchdogTimeout)
	require.Equal(t, []string{"youtube.com", "kinescope.io"}, cfg.Playback.EmbedDomains)
	require.Equal(t, 3, cfg.Cache.Redis.DB)
}

func TestLoad_MalformedEnvIgnored(t *testing.T) {
	t.Setenv("VODBRIDGE_PROBE_TIMEOUT", "not-a-duration")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Resolve.ProbeTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"empty listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log level"},
		{"marker dir with slash", func(c *Config) { c.Resolve.MarkerDir = "a/b" }, "marker"},
		{"extension without dot", func(c *Config) { c.Resolve.Extension = "mp4" }, "dot"},
		{"zero probe timeout", func(c *Config) { c.Resolve.ProbeTimeout = 0 }, "probe timeout"},
		{"zero negative ttl", func(c *Config) { c.Resolve.NegativeTTL = 0 }, "TTL"},
		{"zero watchdog", func(c *Config) { c.Playback.WatchdogTimeout = 0 }, "watchdog"},
		{"embed domain with path", func(c *Config) { c.Playback.EmbedDomains = []string{"youtube.com/embed"} }, "embed domain"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "backend"},
		{
			"redis without addr",
			func(c *Config) { c.Cache.Backend = "redis"; c.Cache.Redis.Addr = "" },
			"redis",
		},
		{"zero cadence", func(c *Config) { c.Ledger.RevalidateEvery = 0 }, "cadence"},
		{"otel without endpoint", func(c *Config) { c.OTel.Enabled = true }, "endpoint"},
		{
			"otel bad protocol",
			func(c *Config) { c.OTel.Enabled = true; c.OTel.Endpoint = "localhost:4317"; c.OTel.Protocol = "udp" },
			"protocol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
