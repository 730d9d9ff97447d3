// SPDX-License-Identifier: MIT

// Package manifest parses HLS media playlists far enough to decide whether
// the rendition they describe is actually playable.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MagicLine is the mandatory first line of every HLS playlist.
const MagicLine = "#EXTM3U"

// ErrNotPlaylist marks content that does not start with the playlist magic line.
var ErrNotPlaylist = errors.New("manifest: missing #EXTM3U magic line")

// Summary holds the playability facts extracted from one media playlist.
type Summary struct {
	Segments         int           // total URI lines
	PlayableSegments int           // segments with a strictly positive EXTINF duration
	TotalDuration    time.Duration // sum of all EXTINF durations
	IsVOD            bool          // #EXT-X-PLAYLIST-TYPE:VOD or #EXT-X-ENDLIST present
}

// Playable reports whether the playlist describes at least one segment of
// real content. A manifest that exists but only lists zero-duration segments
// is a placeholder (packaging still in progress) and must not be served.
func (s *Summary) Playable() bool {
	return s.PlayableSegments > 0
}

// Parse extracts a Summary from playlist text. The leading content must be
// the magic line; everything else is scanned tolerantly, with only corrupt
// EXTINF durations treated as errors.
func Parse(body string) (*Summary, error) {
	if !strings.HasPrefix(strings.TrimSpace(body), MagicLine) {
		return nil, ErrNotPlaylist
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	sum := &Summary{}

	var (
		nextDuration       time.Duration
		hasNextDuration    bool
		hasEndList         bool
		hasPlaylistTypeVOD bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:VOD") {
			hasPlaylistTypeVOD = true
			continue
		}
		if line == "#EXT-X-ENDLIST" {
			hasEndList = true
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			// Format: #EXTINF:10.000,<optional title>
			durPart := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(durPart, ","); idx != -1 {
				durPart = durPart[:idx]
			}
			secs, err := strconv.ParseFloat(strings.TrimSpace(durPart), 64)
			if err != nil {
				return nil, fmt.Errorf("manifest: invalid EXTINF duration %q", durPart)
			}
			nextDuration = time.Duration(secs * float64(time.Second))
			hasNextDuration = true
			continue
		}

		// URI line: closes the pending segment.
		if !strings.HasPrefix(line, "#") {
			sum.Segments++
			if hasNextDuration && nextDuration > 0 {
				sum.PlayableSegments++
			}
			sum.TotalDuration += nextDuration
			nextDuration = 0
			hasNextDuration = false
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sum.IsVOD = hasPlaylistTypeVOD || hasEndList
	return sum, nil
}

// IsHLSContentType reports whether a Content-Type header value carries one of
// the HLS MIME markers (application/vnd.apple.mpegurl, application/x-mpegURL,
// audio/mpegurl and friends all contain "mpegurl").
func IsHLSContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "mpegurl")
}
