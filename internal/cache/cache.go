// SPDX-License-Identifier: MIT

// Package cache memoizes rendition resolutions with TTL support. The
// resolver itself is stateless; this layer sits in front of it so repeated
// storefront requests for the same video do not re-probe the CDN.
package cache

import (
	"context"
	"sync"
	"time"
)

// Resolution is the cached outcome of one source resolution. Negative
// outcomes are cached too (with a shorter TTL) so a missing rendition does
// not trigger a probe storm.
type Resolution struct {
	ManifestURL string `json:"manifestUrl,omitempty"`
	Found       bool   `json:"found"`
	ResolvedAt  time.Time
}

// Store is the resolution cache contract.
type Store interface {
	// Get retrieves a cached resolution. The second return is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (Resolution, bool)
	// Set stores a resolution with the given TTL.
	Set(ctx context.Context, key string, res Resolution, ttl time.Duration)
	// Delete removes a cached resolution.
	Delete(ctx context.Context, key string)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

type entry struct {
	res        Resolution
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryStore is the in-process default backend.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	done    chan struct{}
	closed  sync.Once
}

// NewMemoryStore creates an in-memory store with automatic cleanup. The
// cleanupInterval determines how often expired entries are removed.
func NewMemoryStore(cleanupInterval time.Duration) Store {
	s := &memoryStore{
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	}
	return s
}

func (s *memoryStore) Get(_ context.Context, key string) (Resolution, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || e.isExpired() {
		return Resolution{}, false
	}
	return e.res, true
}

func (s *memoryStore) Set(_ context.Context, key string, res Resolution, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = &entry{res: res, expiration: time.Now().Add(ttl)}
	s.mu.Unlock()
}

func (s *memoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *memoryStore) Ping(_ context.Context) error { return nil }

func (s *memoryStore) Close() error {
	s.closed.Do(func() { close(s.done) })
	return nil
}

func (s *memoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			for k, e := range s.entries {
				if e.isExpired() {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
