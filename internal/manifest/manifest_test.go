// SPDX-License-Identifier: MIT

package manifest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_PlayableVOD(t *testing.T) {
	t.Parallel()

	body := `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-PLAYLIST-TYPE:VOD
#EXTINF:9.009,
seg0.ts
#EXTINF:9.009,
seg1.ts
#EXTINF:3.003,
seg2.ts
#EXT-X-ENDLIST
`
	sum, err := Parse(body)
	require.NoError(t, err)
	require.Equal(t, 3, sum.Segments)
	require.Equal(t, 3, sum.PlayableSegments)
	require.True(t, sum.IsVOD)
	require.True(t, sum.Playable())
	require.InDelta(t, 21.021, sum.TotalDuration.Seconds(), 0.001)
}

func TestParse_ZeroDurationPlaceholderIsNotPlayable(t *testing.T) {
	t.Parallel()

	// A rendition that exists but is still being packaged: valid magic line,
	// valid headers, but every segment reports zero duration.
	body := "#EXTM3U\n#EXTINF:0,\nseg0.ts\n#EXTINF:0,\nseg1.ts\n"
	sum, err := Parse(body)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Segments)
	require.Equal(t, 0, sum.PlayableSegments)
	require.False(t, sum.Playable())
}

func TestParse_LeadingWhitespaceBeforeMagicLine(t *testing.T) {
	t.Parallel()

	sum, err := Parse("\n  \n#EXTM3U\n#EXTINF:4.2,\nseg0.ts\n")
	require.NoError(t, err)
	require.True(t, sum.Playable())
}

func TestParse_MissingMagicLine(t *testing.T) {
	t.Parallel()

	_, err := Parse("<html><body>404</body></html>")
	require.True(t, errors.Is(err, ErrNotPlaylist))

	_, err = Parse("")
	require.True(t, errors.Is(err, ErrNotPlaylist))
}

func TestParse_CorruptDuration(t *testing.T) {
	t.Parallel()

	_, err := Parse("#EXTM3U\n#EXTINF:abc,\nseg0.ts\n")
	require.Error(t, err)
}

func TestParse_LivePlaylistWithoutEndList(t *testing.T) {
	t.Parallel()

	sum, err := Parse("#EXTM3U\n#EXTINF:6.0,\nseg0.ts\n#EXTINF:6.0,\nseg1.ts\n")
	require.NoError(t, err)
	require.False(t, sum.IsVOD)
	require.Equal(t, 12*time.Second, sum.TotalDuration)
}

func TestIsHLSContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ct   string
		want bool
	}{
		{"application/vnd.apple.mpegurl", true},
		{"application/x-mpegURL", true},
		{"audio/mpegurl; charset=utf-8", true},
		{"application/octet-stream", false},
		{"text/html", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHLSContentType(tt.ct); got != tt.want {
			t.Errorf("IsHLSContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}
