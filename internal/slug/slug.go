// SPDX-License-Identifier: MIT

// Package slug derives URL-safe rendition names from video file stems.
//
// The derivation must match, byte for byte, the naming convention of the
// packaging job that writes HLS renditions next to the source files on the
// CDN. Both sides lower-case an ASCII-folded form of the stem, or fall back
// to a SHA-1 digest when folding leaves nothing usable.
package slug

import (
	"crypto/sha1" //nolint:gosec // naming convention, not cryptography
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLen is the hard cap on derived slug length, shared with the packager.
const MaxLen = 60

// clipSuffix matches derivative clips produced by the backend clipping job:
// "<stem>_clip_<32 lowercase hex chars>".
var clipSuffix = regexp.MustCompile(`_clip_[0-9a-f]{32}$`)

// foldASCII applies Unicode canonical decomposition and drops combining
// marks, then drops every remaining non-ASCII rune.
var foldASCII = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Derive returns the canonical slug for a file stem. The result is never
// empty for a non-empty stem: when the ASCII-folded form collapses to
// nothing (e.g. a fully non-Latin title) the digest fallback applies.
func Derive(stem string) string {
	folded, _, err := transform.String(foldASCII, stem)
	if err != nil {
		// Malformed input falls through to the raw stem; the alnum filter
		// below drops anything unusable either way.
		folded = stem
	}
	if s := hyphenate(stripNonASCII(folded)); s != "" {
		return truncate(s)
	}
	return digestFallback(stem)
}

// DeriveAggressive is the simplified variant: plain alnum filtering on the
// raw stem, no decomposition. It guards against stems the folding transform
// mishandles and is always computed alongside the primary slug.
func DeriveAggressive(stem string) string {
	if s := hyphenate(stem); s != "" {
		return truncate(s)
	}
	return digestFallback(stem)
}

// StripClipSuffix removes the backend clipping job's suffix from a stem.
// The second return reports whether the suffix was present.
func StripClipSuffix(stem string) (string, bool) {
	if loc := clipSuffix.FindStringIndex(stem); loc != nil {
		return stem[:loc[0]], true
	}
	return stem, false
}

// stripNonASCII deletes every rune outside the ASCII range. This runs before
// hyphenation in the primary rule: a non-ASCII rune between two word
// characters disappears instead of becoming a separator.
func stripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hyphenate collapses every run of non-alphanumeric characters into a single
// hyphen, trims leading/trailing hyphens and lower-cases the result. In the
// aggressive variant this runs on the raw stem, so non-ASCII runes count as
// separators.
func hyphenate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingHyphen = true
			}
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func digestFallback(stem string) string {
	sum := sha1.Sum([]byte(stem)) //nolint:gosec
	return truncate(hex.EncodeToString(sum[:]))
}

func truncate(s string) string {
	if len(s) > MaxLen {
		return s[:MaxLen]
	}
	return s
}
