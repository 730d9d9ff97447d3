// SPDX-License-Identifier: MIT

package resolve

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodbridge/internal/cache"
)

type countingProber struct {
	mu     sync.Mutex
	result ProbeResult
	calls  int
}

func (p *countingProber) Probe(context.Context, string) ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.result
}

func (p *countingProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type captureRecorder struct {
	mu       sync.Mutex
	sources  []string
	strategy string
}

func (r *captureRecorder) RecordConfirmed(_ context.Context, sourceURL, _, strategy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, sourceURL)
	r.strategy = strategy
}

func newTestService(t *testing.T, prober Prober, recorder Recorder) *Service {
	t.Helper()
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(NewResolver(prober, DefaultOptions()), store, recorder, ServiceConfig{
		PositiveTTL: time.Minute,
		NegativeTTL: time.Minute,
	})
}

func TestService_MemoizesConfirmedResolutions(t *testing.T) {
	t.Parallel()

	prober := &countingProber{result: ProbeResult{Status: ProbeConfirmed}}
	recorder := &captureRecorder{}
	svc := newTestService(t, prober, recorder)

	src := "https://cdn.example.com/course/lesson.mp4"
	first, found := svc.Resolve(context.Background(), src)
	require.True(t, found)
	require.Equal(t, "https://cdn.example.com/course/.hls/lesson/playlist.m3u8", first)

	probesAfterFirst := prober.callCount()
	second, found := svc.Resolve(context.Background(), src)
	require.True(t, found)
	require.Equal(t, first, second)
	require.Equal(t, probesAfterFirst, prober.callCount(), "cached resolution must not re-probe")

	require.Equal(t, []string{src}, recorder.sources)
	require.Equal(t, StrategyPrimary, recorder.strategy)
}

func TestService_CachesNegativeResults(t *testing.T) {
	t.Parallel()

	prober := &countingProber{result: ProbeResult{Status: ProbeRejected}}
	svc := newTestService(t, prober, nil)

	src := "https://cdn.example.com/course/lesson.mp4"
	_, found := svc.Resolve(context.Background(), src)
	require.False(t, found)

	probesAfterFirst := prober.callCount()
	_, found = svc.Resolve(context.Background(), src)
	require.False(t, found)
	require.Equal(t, probesAfterFirst, prober.callCount())
}

func TestService_InvalidateForcesReprobe(t *testing.T) {
	t.Parallel()

	prober := &countingProber{result: ProbeResult{Status: ProbeConfirmed}}
	svc := newTestService(t, prober, nil)

	src := "https://cdn.example.com/course/lesson.mp4"
	_, found := svc.Resolve(context.Background(), src)
	require.True(t, found)

	svc.Invalidate(context.Background(), src)
	probesBefore := prober.callCount()
	_, found = svc.Resolve(context.Background(), src)
	require.True(t, found)
	require.Greater(t, prober.callCount(), probesBefore)
}

// ttlRecordingStore captures the TTL passed to Set so tests can observe
// runtime TTL changes.
type ttlRecordingStore struct {
	cache.Store
	mu      sync.Mutex
	lastTTL time.Duration
}

func (s *ttlRecordingStore) Set(ctx context.Context, key string, res cache.Resolution, ttl time.Duration) {
	s.mu.Lock()
	s.lastTTL = ttl
	s.mu.Unlock()
	s.Store.Set(ctx, key, res, ttl)
}

func (s *ttlRecordingStore) last() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTTL
}

func TestService_SetTTLsAppliesOnNextResolution(t *testing.T) {
	t.Parallel()

	prober := &countingProber{result: ProbeResult{Status: ProbeConfirmed}}
	mem := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })
	store := &ttlRecordingStore{Store: mem}
	svc := NewService(NewResolver(prober, DefaultOptions()), store, nil, ServiceConfig{
		PositiveTTL: time.Minute,
		NegativeTTL: 30 * time.Second,
	})

	src := "https://cdn.example.com/course/lesson.mp4"
	_, found := svc.Resolve(context.Background(), src)
	require.True(t, found)
	require.Equal(t, time.Minute, store.last())

	svc.SetTTLs(5*time.Minute, 10*time.Second)
	svc.Invalidate(context.Background(), src)
	_, found = svc.Resolve(context.Background(), src)
	require.True(t, found)
	require.Equal(t, 5*time.Minute, store.last())

	// Non-positive values leave the current TTLs untouched.
	svc.SetTTLs(0, -1)
	svc.Invalidate(context.Background(), src)
	_, found = svc.Resolve(context.Background(), src)
	require.True(t, found)
	require.Equal(t, 5*time.Minute, store.last())
}

func TestService_ConcurrentRequestsShareOneResolution(t *testing.T) {
	t.Parallel()

	prober := &countingProber{result: ProbeResult{Status: ProbeConfirmed}}
	svc := newTestService(t, prober, nil)
	src := "https://cdn.example.com/course/lesson.mp4"

	var wg sync.WaitGroup
	var misses atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, found := svc.Resolve(context.Background(), src); !found {
				misses.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Zero(t, misses.Load())

	// Singleflight plus the cache keep the probe count well below the
	// request count; a single source resolves once per probe sequence.
	require.LessOrEqual(t, prober.callCount(), 3)
}
