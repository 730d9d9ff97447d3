// SPDX-License-Identifier: MIT

package playback

// ErrorCategory classifies engine errors the way HLS client libraries
// report them.
type ErrorCategory string

const (
	ErrorNetwork ErrorCategory = "network"
	ErrorMedia   ErrorCategory = "media"
	ErrorOther   ErrorCategory = "other"
)

// EventType enumerates the engine lifecycle events the Controller reacts
// to. The contract is deliberately closed: a fixed set of named events with
// typed payloads keeps the supervision state machine exhaustive.
type EventType string

const (
	EventMediaAttached  EventType = "media_attached"
	EventManifestParsed EventType = "manifest_parsed"
	EventError          EventType = "error"
)

// EngineError is the payload of an EventError event.
type EngineError struct {
	Category ErrorCategory
	Fatal    bool
	Cause    string
}

// Event is one engine lifecycle notification. Err is set only for
// EventError.
type Event struct {
	Type EventType
	Err  *EngineError
}

// EngineConfig is passed to the engine factory on construction.
type EngineConfig struct {
	// EnableWorker moves demuxing off the main thread where the engine
	// supports it.
	EnableWorker bool
	// LowLatency enables low-latency HLS handling; off for VOD courses.
	LowLatency bool
}

// Engine is the client-side adaptive-streaming collaborator. The Controller
// owns exactly one instance at a time and always calls Destroy before
// constructing another or abandoning playback.
type Engine interface {
	// AttachMedia binds the engine to the render target.
	AttachMedia(target RenderTarget)
	// LoadSource starts loading the given manifest URL.
	LoadSource(manifestURL string)
	// StartLoad restarts loading after a fatal network error.
	StartLoad()
	// RecoverMediaError attempts in-place recovery from a fatal decode error.
	RecoverMediaError()
	// Destroy stops all network activity and detaches from the target.
	// It must be idempotent; the event channel closes after Destroy.
	Destroy()
	// Events delivers lifecycle events until Destroy.
	Events() <-chan Event
}

// EngineFactory constructs an Engine. A nil factory means no adaptive
// engine is available in the environment.
type EngineFactory func(cfg EngineConfig) Engine

// RenderTarget is the single video-rendering surface the Controller drives.
// It is exclusively owned by the Controller for the lifetime of one source
// evaluation.
type RenderTarget interface {
	// SupportsNativeHLS reports whether the surface can play HLS manifests
	// directly, without an engine.
	SupportsNativeHLS() bool
	// SetSource points the surface at a directly playable URL (a manifest
	// for native HLS, or the progressive file).
	SetSource(url string)
	// ShowEmbed replaces the surface with a third-party embed frame.
	ShowEmbed(url string)
	// Configure applies presentation flags before playback starts.
	Configure(intent Intent)
	// Play attempts to start playback. A rejection (autoplay policy) is
	// returned as an error and swallowed by the Controller.
	Play() error
}

// Intent carries the caller's playback flags. PreferAdaptive gates the
// whole resolution path; the rest passes through to the render target.
type Intent struct {
	PreferAdaptive bool
	Autoplay       bool
	Loop           bool
	Muted          bool
	ShowControls   bool
}
