// SPDX-License-Identifier: MIT

package resolve

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/manifest"
	"github.com/ManuGH/vodbridge/internal/metrics"
)

// ProbeStatus is the tri-state outcome of testing one candidate. Rejected
// and error are handled identically by the resolver (advance to the next
// candidate); they stay distinct so tests and logs can tell a reachable but
// unplayable manifest from a network failure.
type ProbeStatus string

const (
	ProbeConfirmed ProbeStatus = "confirmed"
	ProbeRejected  ProbeStatus = "rejected"
	ProbeError     ProbeStatus = "error"
)

// ProbeResult describes the outcome of one candidate probe.
type ProbeResult struct {
	Status ProbeStatus
	Reason string
}

// Prober tests whether a candidate manifest URL serves a playable rendition.
type Prober interface {
	Probe(ctx context.Context, candidateURL string) ProbeResult
}

// maxManifestBytes bounds how much of a probe response body is read. Media
// playlists are a few KB; anything larger than this is not one of ours.
const maxManifestBytes = 1 << 20

// HTTPProber issues anonymous, cache-bypassing GET requests against the CDN
// and validates the response as an HLS media playlist.
type HTTPProber struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// ProberConfig tunes the HTTP prober.
type ProberConfig struct {
	// Timeout bounds one probe request end to end.
	Timeout time.Duration
	// RatePerSecond throttles probes against the CDN; 0 disables throttling.
	RatePerSecond float64
	// Transport overrides the HTTP transport (tests). The default transport
	// is wrapped with otelhttp so probes show up as client spans.
	Transport http.RoundTripper
}

// NewHTTPProber creates a prober with sane defaults for missing config.
func NewHTTPProber(cfg ProberConfig) *HTTPProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)+1)
	}

	return &HTTPProber{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter: limiter,
		logger:  log.WithComponent("prober"),
	}
}

// Probe issues one GET against candidateURL. It never panics and never
// returns an error: every failure mode collapses into a rejected or error
// result so the resolver can move on to the next candidate.
func (p *HTTPProber) Probe(ctx context.Context, candidateURL string) ProbeResult {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return ProbeResult{Status: ProbeError, Reason: "rate limiter: " + err.Error()}
		}
	}

	start := time.Now()
	defer func() {
		metrics.ObserveProbeDuration(time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidateURL, nil)
	if err != nil {
		return ProbeResult{Status: ProbeError, Reason: "build request: " + err.Error()}
	}
	// Anonymous probe: no cookies or credentials, and no intermediary caching
	// so a freshly packaged rendition is seen immediately.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug().Err(err).Str(log.FieldCandidate, candidateURL).Msg("probe request failed")
		return ProbeResult{Status: ProbeError, Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProbeResult{Status: ProbeRejected, Reason: "status " + resp.Status}
	}
	if ct := resp.Header.Get("Content-Type"); !manifest.IsHLSContentType(ct) {
		return ProbeResult{Status: ProbeRejected, Reason: "content-type " + ct}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return ProbeResult{Status: ProbeError, Reason: "read body: " + err.Error()}
	}

	sum, err := manifest.Parse(string(body))
	if err != nil {
		return ProbeResult{Status: ProbeRejected, Reason: err.Error()}
	}
	if !sum.Playable() {
		return ProbeResult{Status: ProbeRejected, Reason: "no playable segments"}
	}

	return ProbeResult{Status: ProbeConfirmed}
}
