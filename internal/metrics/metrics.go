// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus instrumentation for vodbridge.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_resolve_total",
		Help: "Total rendition resolutions by outcome and winning slug strategy",
	}, []string{"outcome", "strategy"})

	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_probe_total",
		Help: "Total candidate probes by result and slug strategy",
	}, []string{"result", "strategy"})

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vodbridge_probe_duration_seconds",
		Help:    "Latency of individual candidate probes",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	playbackDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_playback_decision_total",
		Help: "Total playback mode decisions by mode and reason",
	}, []string{"mode", "reason"})

	playbackTransitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_playback_transition_total",
		Help: "Playback state demotions at runtime by previous mode, new mode and trigger",
	}, []string{"from", "to", "trigger"})

	watchdogTimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodbridge_playback_watchdog_timeout_total",
		Help: "Engine attachments abandoned because the manifest did not parse in time",
	})

	engineRecoveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_playback_engine_recovery_total",
		Help: "In-place engine recovery attempts by error category",
	}, []string{"category"})

	cacheLookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_resolution_cache_lookup_total",
		Help: "Resolution cache lookups by result",
	}, []string{"result"})

	revalidationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_revalidation_total",
		Help: "Ledger revalidation checks by outcome",
	}, []string{"outcome"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodbridge_http_requests_total",
		Help: "HTTP requests by method, route and status class",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vodbridge_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// RecordResolveOutcome records one resolution outcome. Strategy is empty for
// outcomes without a winning candidate.
func RecordResolveOutcome(outcome, strategy string) {
	resolveTotal.WithLabelValues(normalizeOutcomeLabel(outcome), normalizeStrategyLabel(strategy)).Inc()
}

// RecordProbe records one candidate probe result.
func RecordProbe(result, strategy string) {
	probeTotal.WithLabelValues(normalizeProbeLabel(result), normalizeStrategyLabel(strategy)).Inc()
}

// ObserveProbeDuration records the latency of one candidate probe.
func ObserveProbeDuration(d time.Duration) {
	probeDuration.Observe(d.Seconds())
}

// RecordPlaybackDecision records the mode chosen for one source evaluation.
func RecordPlaybackDecision(mode, reason string) {
	playbackDecisionTotal.WithLabelValues(mode, reason).Inc()
}

// RecordPlaybackTransition records a runtime demotion between playback modes.
func RecordPlaybackTransition(from, to, trigger string) {
	playbackTransitionTotal.WithLabelValues(from, to, trigger).Inc()
}

// IncWatchdogTimeout counts one watchdog-forced fallback.
func IncWatchdogTimeout() {
	watchdogTimeoutTotal.Inc()
}

// IncEngineRecovery counts one in-place engine recovery attempt.
func IncEngineRecovery(category string) {
	engineRecoveryTotal.WithLabelValues(category).Inc()
}

// RecordCacheLookup records a resolution cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupTotal.WithLabelValues(result).Inc()
}

// RecordRevalidation records one ledger revalidation outcome.
func RecordRevalidation(outcome string) {
	revalidationTotal.WithLabelValues(normalizeOutcomeLabel(outcome)).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func normalizeOutcomeLabel(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "confirmed", "not_found", "invalid_source", "demoted", "still_valid", "check_failed":
		return strings.ToLower(strings.TrimSpace(outcome))
	default:
		return "unknown"
	}
}

func normalizeProbeLabel(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "confirmed", "rejected", "error":
		return strings.ToLower(strings.TrimSpace(result))
	default:
		return "unknown"
	}
}

func normalizeStrategyLabel(strategy string) string {
	switch strategy {
	case "primary", "clip_stripped", "aggressive":
		return strategy
	case "":
		return "none"
	default:
		return "unknown"
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
