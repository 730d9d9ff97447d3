// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/playback"
)

const maxPlanBody = 64 << 10

type resolveResponse struct {
	SourceURL   string `json:"sourceUrl"`
	ManifestURL string `json:"manifestUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type planRequest struct {
	SourceURL       string `json:"sourceUrl"`
	PreferAdaptive  bool   `json:"preferAdaptive"`
	NativeHLS       bool   `json:"nativeHls"`
	EngineAvailable bool   `json:"engineAvailable"`
}

type planResponse struct {
	Mode   string `json:"mode"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
	// WatchdogTimeoutMs tells library_hls clients how long to wait for a
	// manifest parse before falling back.
	WatchdogTimeoutMs int64 `json:"watchdogTimeoutMs,omitempty"`
}

// handleResolve answers GET /api/v1/resolve?src=<url>.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_src"})
		return
	}

	manifestURL, ok := s.resolver.Resolve(r.Context(), src)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no_rendition"})
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{SourceURL: src, ManifestURL: manifestURL})
}

// handleInvalidate answers DELETE /api/v1/resolve?src=<url> by dropping
// the cached resolution so the next lookup probes again.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_src"})
		return
	}
	s.resolver.Invalidate(r.Context(), src)
	w.WriteHeader(http.StatusNoContent)
}

// handlePlaybackPlan answers POST /api/v1/playback/plan. The client sends
// its capabilities and gets back the mode it should start in.
func (s *Server) handlePlaybackPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlanBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body"})
		return
	}
	if req.SourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_source_url"})
		return
	}

	// Embed sources and non-adaptive requests never need a resolution.
	var manifestURL string
	if req.PreferAdaptive && !playback.IsEmbedSource(req.SourceURL, s.cfg.EmbedDomains) {
		manifestURL, _ = s.resolver.Resolve(r.Context(), req.SourceURL)
	}

	out := playback.Decide(playback.Input{
		SourceURL:      req.SourceURL,
		PreferAdaptive: req.PreferAdaptive,
		ManifestURL:    manifestURL,
		NativeHLS:      req.NativeHLS,
		EngineAvail:    req.EngineAvailable,
		EmbedDomains:   s.cfg.EmbedDomains,
	})
	resp := planResponse{
		Mode:   string(out.Mode),
		URL:    out.URL,
		Reason: string(out.Reason),
	}
	if out.Mode == playback.ModeLibraryHLS {
		resp.WatchdogTimeoutMs = s.cfg.WatchdogTimeout.Milliseconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
