// SPDX-License-Identifier: MIT

// Package playback decides how a video source should be rendered and
// supervises adaptive-engine playback through a layered fallback chain:
// external embed, native HLS, library HLS, progressive download.
package playback

import (
	"net/url"
	"strings"
)

// Mode is the rendering mode for one source evaluation. Runtime transitions
// are one-directional: a source only ever moves toward a more conservative
// mode within the lifetime of one evaluation.
type Mode string

const (
	ModeExternalEmbed Mode = "external_embed"
	ModeNativeHLS     Mode = "native_hls"
	ModeLibraryHLS    Mode = "library_hls"
	ModeProgressive   Mode = "progressive"
)

// Reason explains a decision, for logs and metrics.
type Reason string

const (
	ReasonEmbedDomain       Reason = "embed_domain"
	ReasonUnparseableSource Reason = "unparseable_source"
	ReasonAdaptiveDisabled  Reason = "adaptive_disabled"
	ReasonNoRendition       Reason = "no_rendition"
	ReasonNativeSupport     Reason = "native_support"
	ReasonEngineAvailable   Reason = "engine_available"
	ReasonNoEngine          Reason = "no_engine"
)

// DefaultEmbedDomains lists the third-party player hosts the storefront
// links to. A source on one of these is rendered as an iframe embed and
// never resolved.
var DefaultEmbedDomains = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"player.vimeo.com",
	"rutube.ru",
	"kinescope.io",
}

// Input is everything the mode decision depends on. ManifestURL is the
// resolver's output and is only consulted when adaptive playback is
// requested and the source is not an embed.
type Input struct {
	SourceURL      string
	PreferAdaptive bool
	ManifestURL    string // empty means the resolver found no rendition
	NativeHLS      bool   // render target reports native adaptive support
	EngineAvail    bool   // a client-side adaptive engine can be constructed
	EmbedDomains   []string
}

// Output is the chosen mode plus the URL the render surface should load.
type Output struct {
	Mode   Mode
	URL    string
	Reason Reason
}

// Decide picks the initial playback mode for one source evaluation. It is a
// pure function; the Controller applies the same rules and then supervises
// the chosen mode at runtime.
func Decide(in Input) Output {
	if embed, reason := classifySource(in.SourceURL, in.EmbedDomains); embed {
		return Output{Mode: ModeExternalEmbed, URL: in.SourceURL, Reason: reason}
	}

	if !in.PreferAdaptive {
		return Output{Mode: ModeProgressive, URL: in.SourceURL, Reason: ReasonAdaptiveDisabled}
	}

	if in.ManifestURL == "" {
		return Output{Mode: ModeProgressive, URL: in.SourceURL, Reason: ReasonNoRendition}
	}

	if in.NativeHLS {
		return Output{Mode: ModeNativeHLS, URL: in.ManifestURL, Reason: ReasonNativeSupport}
	}
	if in.EngineAvail {
		return Output{Mode: ModeLibraryHLS, URL: in.ManifestURL, Reason: ReasonEngineAvailable}
	}
	return Output{Mode: ModeProgressive, URL: in.SourceURL, Reason: ReasonNoEngine}
}

// classifySource reports whether sourceURL must short-circuit to an embed,
// either because its host is a recognized third-party player domain or
// because the URL cannot be evaluated at all.
func classifySource(sourceURL string, domains []string) (bool, Reason) {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return true, ReasonUnparseableSource
	}
	if len(domains) == 0 {
		domains = DefaultEmbedDomains
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true, ReasonEmbedDomain
		}
	}
	return false, ""
}

// IsEmbedSource reports whether sourceURL short-circuits to an external
// embed. Callers use this to skip resolution entirely.
func IsEmbedSource(sourceURL string, domains []string) bool {
	embed, _ := classifySource(sourceURL, domains)
	return embed
}
