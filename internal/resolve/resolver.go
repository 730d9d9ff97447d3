// SPDX-License-Identifier: MIT

// Package resolve discovers CDN-side HLS renditions for progressive video
// sources. Given a canonical MP4 URL it derives the rendition slugs the
// packaging job would have used, assembles candidate manifest locations and
// probes them sequentially until one is confirmed playable.
package resolve

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/metrics"
	"github.com/ManuGH/vodbridge/internal/slug"
)

// Slug derivation strategies, in probe priority order.
const (
	StrategyPrimary      = "primary"
	StrategyClipStripped = "clip_stripped"
	StrategyAggressive   = "aggressive"
)

// Options carries the naming convention shared with the CDN packaging job.
// The zero value is not usable; use DefaultOptions.
type Options struct {
	// Extension is the progressive source file extension, matched
	// case-insensitively against the decoded URL path.
	Extension string
	// MarkerDir is the fixed directory the packager writes renditions under,
	// as a sibling of the source file.
	MarkerDir string
	// ManifestName is the fixed playlist filename inside a rendition dir.
	ManifestName string
}

// DefaultOptions matches the packager deployed alongside the storefront.
func DefaultOptions() Options {
	return Options{
		Extension:    ".mp4",
		MarkerDir:    ".hls",
		ManifestName: "playlist.m3u8",
	}
}

// Candidate is one possible manifest location, tagged with the slug strategy
// that produced it.
type Candidate struct {
	URL      string
	Strategy string
}

// Resolver turns progressive source URLs into verified HLS manifest URLs.
// It holds no state between calls; callers that want memoization layer it on
// top (see Service).
type Resolver struct {
	prober Prober
	opts   Options
	logger zerolog.Logger
}

// NewResolver creates a Resolver probing through p.
func NewResolver(p Prober, opts Options) *Resolver {
	if opts.Extension == "" {
		opts = DefaultOptions()
	}
	return &Resolver{
		prober: p,
		opts:   opts,
		logger: log.WithComponent("resolver"),
	}
}

// Candidates derives the ordered, de-duplicated candidate manifest URLs for
// sourceURL. The second return is false when the URL does not parse as an
// absolute HTTP URL or its path does not end in the source extension; no
// candidates exist in that case and no network access may happen.
//
// At most three candidates result, one per slug strategy.
func (r *Resolver) Candidates(sourceURL string) ([]Candidate, bool) {
	u, err := url.Parse(sourceURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}

	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return nil, false
	}

	fileName := segments[len(segments)-1]
	if !strings.HasSuffix(strings.ToLower(fileName), strings.ToLower(r.opts.Extension)) {
		return nil, false
	}
	stem := fileName[:len(fileName)-len(r.opts.Extension)]
	prefix := segments[:len(segments)-1]

	type derived struct {
		slug     string
		strategy string
	}
	slugs := []derived{{slug.Derive(stem), StrategyPrimary}}
	if shortened, ok := slug.StripClipSuffix(stem); ok {
		slugs = append(slugs, derived{slug.Derive(shortened), StrategyClipStripped})
	}
	slugs = append(slugs, derived{slug.DeriveAggressive(stem), StrategyAggressive})

	base := u.Scheme + "://" + u.Host
	var escaped []string
	for _, seg := range prefix {
		escaped = append(escaped, url.PathEscape(seg))
	}
	dir := base + "/"
	if len(escaped) > 0 {
		dir += strings.Join(escaped, "/") + "/"
	}

	seen := make(map[string]bool, len(slugs))
	var out []Candidate
	for _, s := range slugs {
		if s.slug == "" || seen[s.slug] {
			continue
		}
		seen[s.slug] = true
		r.logger.Debug().
			Str(log.FieldStem, stem).
			Str(log.FieldSlug, s.slug).
			Str(log.FieldStrategy, s.strategy).
			Msg("candidate slug derived")
		out = append(out, Candidate{
			URL:      dir + r.opts.MarkerDir + "/" + s.slug + "/" + r.opts.ManifestName,
			Strategy: s.strategy,
		})
	}
	return out, true
}

// Resolve probes the candidates for sourceURL in order and returns the first
// manifest URL confirmed playable. The second return is false when no
// rendition exists. Resolve never returns an error: malformed input and
// every probe failure collapse into "not found".
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (string, bool) {
	c, ok := r.ResolveCandidate(ctx, sourceURL)
	return c.URL, ok
}

// ResolveCandidate is Resolve with the winning candidate's slug strategy
// attached, for callers that record or label resolutions.
func (r *Resolver) ResolveCandidate(ctx context.Context, sourceURL string) (Candidate, bool) {
	candidates, ok := r.Candidates(sourceURL)
	if !ok {
		r.logger.Debug().
			Str(log.FieldSource, sourceURL).
			Msg("source URL not eligible for rendition lookup")
		metrics.RecordResolveOutcome("invalid_source", "")
		return Candidate{}, false
	}

	for _, c := range candidates {
		res := r.prober.Probe(ctx, c.URL)
		metrics.RecordProbe(string(res.Status), c.Strategy)

		switch res.Status {
		case ProbeConfirmed:
			r.logger.Info().
				Str(log.FieldSource, sourceURL).
				Str(log.FieldManifest, c.URL).
				Str(log.FieldStrategy, c.Strategy).
				Msg("rendition confirmed")
			metrics.RecordResolveOutcome("confirmed", c.Strategy)
			return c, true
		case ProbeRejected, ProbeError:
			r.logger.Debug().
				Str(log.FieldCandidate, c.URL).
				Str(log.FieldStrategy, c.Strategy).
				Str(log.FieldOutcome, string(res.Status)).
				Str(log.FieldReason, res.Reason).
				Msg("candidate not playable")
		}
	}

	metrics.RecordResolveOutcome("not_found", "")
	return Candidate{}, false
}

// splitPath decodes nothing (url.Parse already did) and drops empty segments.
func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
