// SPDX-License-Identifier: MIT

// Package api exposes resolution and playback planning over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/vodbridge/internal/health"
	"github.com/ManuGH/vodbridge/internal/log"
)

// ResolveService is the subset of the resolution service the API needs.
type ResolveService interface {
	Resolve(ctx context.Context, sourceURL string) (string, bool)
	Invalidate(ctx context.Context, sourceURL string)
}

// Config configures the HTTP surface.
type Config struct {
	// RateLimit is the per-IP request budget per minute for /api/v1.
	// Zero disables rate limiting.
	RateLimit int
	// EmbedDomains overrides the default embed host list for playback
	// planning.
	EmbedDomains []string
	// TracingService enables OpenTelemetry server spans when non-empty.
	TracingService string
	// WatchdogTimeout is returned in playback plans so clients arm their
	// manifest watchdog with the same deadline the daemon is configured for.
	WatchdogTimeout time.Duration
}

// Server routes API requests to the resolution service.
type Server struct {
	resolver ResolveService
	cfg      Config
}

// NewRouter builds the daemon's HTTP handler: the v1 API plus the
// operational endpoints.
func NewRouter(resolver ResolveService, healthMgr *health.Manager, cfg Config) http.Handler {
	s := &Server{resolver: resolver, cfg: cfg}

	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(Metrics)
	r.Use(log.Middleware())

	r.Get("/healthz", healthMgr.ServeHealth)
	r.Get("/readyz", healthMgr.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(rateLimited),
			))
		}
		r.Get("/resolve", s.handleResolve)
		r.Delete("/resolve", s.handleInvalidate)
		r.Post("/playback/plan", s.handlePlaybackPlan)
	})

	if cfg.TracingService != "" {
		return otelhttp.NewHandler(r, cfg.TracingService)
	}
	return r
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
}
