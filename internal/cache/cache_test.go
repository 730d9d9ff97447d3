// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(0)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	_, ok := s.Get(ctx, "src")
	require.False(t, ok)

	want := Resolution{ManifestURL: "https://cdn.example.com/c/.hls/a/playlist.m3u8", Found: true}
	s.Set(ctx, "src", want, time.Minute)

	got, ok := s.Get(ctx, "src")
	require.True(t, ok)
	require.Equal(t, want.ManifestURL, got.ManifestURL)
	require.True(t, got.Found)

	s.Delete(ctx, "src")
	_, ok = s.Get(ctx, "src")
	require.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(0)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	s.Set(ctx, "neg", Resolution{Found: false}, 10*time.Millisecond)
	_, ok := s.Get(ctx, "neg")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = s.Get(ctx, "neg")
	require.False(t, ok)
}

func TestMemoryStore_ZeroTTLIsNoop(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(0)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	s.Set(ctx, "src", Resolution{Found: true}, 0)
	_, ok := s.Get(ctx, "src")
	require.False(t, ok)
}

func TestMemoryStore_Ping(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(0)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Ping(context.Background()))
}
