// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(src string) Record {
	return Record{
		SourceURL:   src,
		ManifestURL: "https://cdn.example.com/c/.hls/x/playlist.m3u8",
		Strategy:    "primary",
		ConfirmedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	rec := testRecord("https://cdn.example.com/c/lesson.mp4")

	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, rec.SourceURL)
	require.NoError(t, err)
	require.Equal(t, rec.ManifestURL, got.ManifestURL)
	require.Equal(t, "primary", got.Strategy)

	require.NoError(t, s.Delete(ctx, rec.SourceURL))
	_, err = s.Get(ctx, rec.SourceURL)
	require.True(t, errors.Is(err, ErrNotFound))

	// Deleting a missing record is not an error.
	require.NoError(t, s.Delete(ctx, rec.SourceURL))
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"https://a.example.com/1.mp4", "https://a.example.com/2.mp4", "https://a.example.com/3.mp4"} {
		require.NoError(t, s.Put(ctx, testRecord(src)))
	}

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestStore_Export(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, testRecord("https://a.example.com/b.mp4")))
	require.NoError(t, s.Put(ctx, testRecord("https://a.example.com/a.mp4")))

	path := filepath.Join(t.TempDir(), "renditions.json")
	require.NoError(t, s.Export(ctx, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	require.Len(t, snap.Renditions, 2)
	// Sorted by source URL for a stable diffable export.
	require.Equal(t, "https://a.example.com/a.mp4", snap.Renditions[0].SourceURL)
	require.False(t, snap.GeneratedAt.IsZero())
}
