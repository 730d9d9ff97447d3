// SPDX-License-Identifier: MIT

package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/vodbridge/internal/cache"
	"github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/metrics"
)

// Recorder receives every confirmed resolution. The daemon plugs the
// rendition ledger in here; the resolver itself stays stateless.
type Recorder interface {
	RecordConfirmed(ctx context.Context, sourceURL, manifestURL, strategy string)
}

// ServiceConfig tunes the memoization layer.
type ServiceConfig struct {
	// PositiveTTL caches confirmed manifest URLs.
	PositiveTTL time.Duration
	// NegativeTTL caches "no rendition" results, kept short so renditions
	// that finish packaging become visible quickly.
	NegativeTTL time.Duration
}

// Service wraps a Resolver with request-level memoization: a TTL cache in
// front, singleflight around the probe sequence so concurrent requests for
// the same source share one resolution, and an optional Recorder behind.
type Service struct {
	resolver *Resolver
	store    cache.Store
	recorder Recorder
	sf       singleflight.Group
	logger   zerolog.Logger

	mu  sync.RWMutex
	cfg ServiceConfig
}

// NewService assembles the memoizing resolution service. recorder may be nil.
func NewService(resolver *Resolver, store cache.Store, recorder Recorder, cfg ServiceConfig) *Service {
	if cfg.PositiveTTL <= 0 {
		cfg.PositiveTTL = 15 * time.Minute
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = time.Minute
	}
	return &Service{
		resolver: resolver,
		store:    store,
		recorder: recorder,
		cfg:      cfg,
		logger:   log.WithComponent("resolve-service"),
	}
}

// Resolve returns the verified manifest URL for sourceURL, or false when no
// rendition exists. Like the underlying Resolver it never returns an error.
func (s *Service) Resolve(ctx context.Context, sourceURL string) (string, bool) {
	if res, ok := s.store.Get(ctx, sourceURL); ok {
		metrics.RecordCacheLookup(true)
		return res.ManifestURL, res.Found
	}
	metrics.RecordCacheLookup(false)

	v, _, _ := s.sf.Do(sourceURL, func() (any, error) {
		candidate, found := s.resolver.ResolveCandidate(ctx, sourceURL)

		res := cache.Resolution{
			ManifestURL: candidate.URL,
			Found:       found,
			ResolvedAt:  time.Now(),
		}
		s.mu.RLock()
		ttl := s.cfg.NegativeTTL
		if found {
			ttl = s.cfg.PositiveTTL
		}
		s.mu.RUnlock()
		s.store.Set(ctx, sourceURL, res, ttl)

		if found && s.recorder != nil {
			s.recorder.RecordConfirmed(ctx, sourceURL, candidate.URL, candidate.Strategy)
		}
		return res, nil
	})

	res := v.(cache.Resolution)
	return res.ManifestURL, res.Found
}

// SetTTLs replaces the cache TTLs at runtime. Non-positive values keep the
// current setting. Called from the config reload path.
func (s *Service) SetTTLs(positive, negative time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if positive > 0 {
		s.cfg.PositiveTTL = positive
	}
	if negative > 0 {
		s.cfg.NegativeTTL = negative
	}
}

// Invalidate drops the cached resolution for sourceURL. The revalidation
// worker calls this when it demotes a ledger record.
func (s *Service) Invalidate(ctx context.Context, sourceURL string) {
	s.store.Delete(ctx, sourceURL)
}
