// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/vodbridge/internal/log"
)

// applyEnv overlays VODBRIDGE_* environment variables on cfg. Malformed
// values are logged and ignored so a typo cannot silently zero a tunable.
func applyEnv(cfg *Config) {
	envString("VODBRIDGE_LISTEN", &cfg.Listen)
	envString("VODBRIDGE_LOG_LEVEL", &cfg.LogLevel)

	envString("VODBRIDGE_MARKER_DIR", &cfg.Resolve.MarkerDir)
	envString("VODBRIDGE_MANIFEST_NAME", &cfg.Resolve.ManifestName)
	envString("VODBRIDGE_EXTENSION", &cfg.Resolve.Extension)
	envDuration("VODBRIDGE_PROBE_TIMEOUT", &cfg.Resolve.ProbeTimeout)
	envFloat("VODBRIDGE_PROBE_RATE", &cfg.Resolve.ProbeRate)
	envDuration("VODBRIDGE_POSITIVE_TTL", &cfg.Resolve.PositiveTTL)
	envDuration("VODBRIDGE_NEGATIVE_TTL", &cfg.Resolve.NegativeTTL)

	envDuration("VODBRIDGE_WATCHDOG_TIMEOUT", &cfg.Playback.WatchdogTimeout)
	if v, ok := os.LookupEnv("VODBRIDGE_EMBED_DOMAINS"); ok && v != "" {
		cfg.Playback.EmbedDomains = splitList(v)
	}

	envString("VODBRIDGE_CACHE_BACKEND", &cfg.Cache.Backend)
	envDuration("VODBRIDGE_CACHE_CLEANUP_INTERVAL", &cfg.Cache.CleanupInterval)
	envString("VODBRIDGE_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	envString("VODBRIDGE_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	envInt("VODBRIDGE_REDIS_DB", &cfg.Cache.Redis.DB)

	envString("VODBRIDGE_LEDGER_PATH", &cfg.Ledger.Path)
	envDuration("VODBRIDGE_REVALIDATE_EVERY", &cfg.Ledger.RevalidateEvery)
	envString("VODBRIDGE_LEDGER_EXPORT_PATH", &cfg.Ledger.ExportPath)

	envBool("VODBRIDGE_OTEL_ENABLED", &cfg.OTel.Enabled)
	envString("VODBRIDGE_OTEL_ENDPOINT", &cfg.OTel.Endpoint)
	envString("VODBRIDGE_OTEL_PROTOCOL", &cfg.OTel.Protocol)
	envBool("VODBRIDGE_OTEL_INSECURE", &cfg.OTel.Insecure)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		warnMalformed(key, v, "duration")
		return
	}
	*dst = d
}

func envInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		warnMalformed(key, v, "integer")
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		warnMalformed(key, v, "float")
		return
	}
	*dst = f
}

func warnMalformed(key, value, kind string) {
	logger := log.WithComponent("config")
	logger.Warn().
		Str("key", key).Str("value", value).
		Msg("ignoring malformed " + kind + " override")
}

func envBool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		warnMalformed(key, v, "boolean")
		return
	}
	*dst = b
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
