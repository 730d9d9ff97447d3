// SPDX-License-Identifier: MIT

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/metrics"
)

// ResolverFunc asks the name resolver for a verified manifest URL. The
// second return is false when no rendition exists. It must never return an
// error; resolution failures are indistinguishable from "no rendition".
type ResolverFunc func(ctx context.Context, sourceURL string) (string, bool)

// DefaultWatchdogTimeout bounds how long an attached engine may take to
// parse the manifest before the Controller abandons it.
const DefaultWatchdogTimeout = 4 * time.Second

// Options configures a Controller.
type Options struct {
	// Resolver is required.
	Resolver ResolverFunc
	// Engine constructs the adaptive engine; nil means none is available.
	Engine EngineFactory
	// EngineConfig is passed to Engine on construction.
	EngineConfig EngineConfig
	// EmbedDomains overrides DefaultEmbedDomains when non-empty.
	EmbedDomains []string
	// WatchdogTimeout overrides DefaultWatchdogTimeout when positive.
	WatchdogTimeout time.Duration
}

// Controller owns one render target and keeps it in sync with the current
// playback mode. Every failure path falls back silently to a more
// conservative mode; the Controller never surfaces an error to its caller.
type Controller struct {
	target RenderTarget
	opts   Options
	logger zerolog.Logger

	mu         sync.Mutex
	generation uint64
	state      Mode
	source     string
	intent     Intent
	engine     Engine
	stop       chan struct{}
}

// NewController creates a Controller driving target.
func NewController(target RenderTarget, opts Options) *Controller {
	if opts.WatchdogTimeout <= 0 {
		opts.WatchdogTimeout = DefaultWatchdogTimeout
	}
	if opts.EngineConfig == (EngineConfig{}) {
		opts.EngineConfig = EngineConfig{EnableWorker: true, LowLatency: false}
	}
	return &Controller{
		target: target,
		opts:   opts,
		logger: log.WithComponent("playback"),
	}
}

// State returns the committed playback mode. It is empty while an
// evaluation is still resolving.
func (c *Controller) State() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load evaluates a new source. Any previous engine is torn down first and
// any in-flight resolution for the previous source is invalidated: a stale
// result arriving later is discarded.
func (c *Controller) Load(ctx context.Context, sourceURL string, intent Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	gen := c.generation
	c.teardownLocked()

	c.state = ""
	c.source = sourceURL
	c.intent = intent
	c.target.Configure(intent)

	if embed, reason := classifySource(sourceURL, c.opts.EmbedDomains); embed {
		c.commitLocked(ModeExternalEmbed, reason)
		c.target.ShowEmbed(sourceURL)
		return
	}

	if !intent.PreferAdaptive {
		c.enterProgressiveLocked(ReasonAdaptiveDisabled)
		return
	}

	// Suspension point: resolution runs off the caller's goroutine and
	// re-checks the generation before committing anything.
	go func() {
		manifestURL, ok := c.opts.Resolver(ctx, sourceURL)
		if !ok {
			manifestURL = ""
		}
		c.onResolved(gen, manifestURL)
	}()
}

// Close releases the engine and invalidates any in-flight resolution. The
// Controller may be reused with a subsequent Load.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.teardownLocked()
	c.state = ""
}

// onResolved commits the mode decision for a completed resolution, unless
// the source has been superseded in the meantime.
func (c *Controller) onResolved(gen uint64, manifestURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug().
			Str(log.FieldSource, c.source).
			Msg("discarding stale resolution result")
		return
	}

	out := Decide(Input{
		SourceURL:      c.source,
		PreferAdaptive: true,
		ManifestURL:    manifestURL,
		NativeHLS:      c.target.SupportsNativeHLS(),
		EngineAvail:    c.opts.Engine != nil,
		EmbedDomains:   c.opts.EmbedDomains,
	})

	switch out.Mode {
	case ModeNativeHLS:
		c.commitLocked(ModeNativeHLS, out.Reason)
		c.target.SetSource(manifestURL)
		c.tryAutoplayLocked()
	case ModeLibraryHLS:
		c.attachEngineLocked(gen, manifestURL)
	default:
		c.enterProgressiveLocked(out.Reason)
	}
}

// attachEngineLocked constructs the engine, binds it to the target and
// starts the supervision loop for this generation.
func (c *Controller) attachEngineLocked(gen uint64, manifestURL string) {
	eng := c.opts.Engine(c.opts.EngineConfig)
	stop := make(chan struct{})
	c.engine = eng
	c.stop = stop

	eng.AttachMedia(c.target)
	eng.LoadSource(manifestURL)
	c.commitLocked(ModeLibraryHLS, ReasonEngineAvailable)

	go c.supervise(gen, eng, stop)
}

// supervise watches one engine's lifecycle events. It applies the bounded
// recovery policy (one in-place retry per error category, then demote) and
// the manifest-parse watchdog.
func (c *Controller) supervise(gen uint64, eng Engine, stop <-chan struct{}) {
	watchdog := time.NewTimer(c.opts.WatchdogTimeout)
	defer watchdog.Stop()
	watchdogC := watchdog.C

	var retriedNetwork, retriedMedia bool

	for {
		select {
		case <-stop:
			return

		case <-watchdogC:
			metrics.IncWatchdogTimeout()
			c.logger.Warn().
				Dur("timeout", c.opts.WatchdogTimeout).
				Msg("manifest did not parse before watchdog deadline")
			c.demote(gen, "watchdog_timeout")
			return

		case ev, ok := <-eng.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case EventMediaAttached:
				// Informational only.

			case EventManifestParsed:
				// Drain a concurrently fired timer so a stale deadline
				// cannot demote a session that parsed in time.
				if !watchdog.Stop() {
					select {
					case <-watchdog.C:
					default:
					}
				}
				watchdogC = nil
				c.mu.Lock()
				if gen == c.generation {
					c.tryAutoplayLocked()
				}
				c.mu.Unlock()

			case EventError:
				if ev.Err == nil || !ev.Err.Fatal {
					continue
				}
				switch ev.Err.Category {
				case ErrorNetwork:
					if retriedNetwork {
						c.demote(gen, "network_fatal_repeated")
						return
					}
					retriedNetwork = true
					metrics.IncEngineRecovery(string(ErrorNetwork))
					eng.StartLoad()
				case ErrorMedia:
					if retriedMedia {
						c.demote(gen, "media_fatal_repeated")
						return
					}
					retriedMedia = true
					metrics.IncEngineRecovery(string(ErrorMedia))
					eng.RecoverMediaError()
				default:
					c.demote(gen, "engine_fatal")
					return
				}
			}
		}
	}
}

// demote tears the engine down and falls back to progressive playback, if
// the triggering generation is still current.
func (c *Controller) demote(gen uint64, trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	from := c.state
	c.teardownLocked()
	c.enterProgressiveLocked(Reason(trigger))
	metrics.RecordPlaybackTransition(string(from), string(ModeProgressive), trigger)
}

// teardownLocked releases the attached engine, if any. This runs on every
// exit path — source change, close, demotion — not only on errors.
func (c *Controller) teardownLocked() {
	if c.engine == nil {
		return
	}
	close(c.stop)
	c.engine.Destroy()
	c.engine = nil
	c.stop = nil
}

func (c *Controller) enterProgressiveLocked(reason Reason) {
	c.commitLocked(ModeProgressive, reason)
	c.target.SetSource(c.source)
	c.tryAutoplayLocked()
}

func (c *Controller) commitLocked(mode Mode, reason Reason) {
	c.logger.Info().
		Str(log.FieldSource, c.source).
		Str(log.FieldOldState, string(c.state)).
		Str(log.FieldNewState, string(mode)).
		Str(log.FieldReason, string(reason)).
		Msg("playback mode committed")
	c.state = mode
	metrics.RecordPlaybackDecision(string(mode), string(reason))
}

// tryAutoplayLocked attempts playback when requested. Rejections (browser
// autoplay policy) are swallowed.
func (c *Controller) tryAutoplayLocked() {
	if !c.intent.Autoplay {
		return
	}
	if err := c.target.Play(); err != nil {
		c.logger.Debug().Err(err).Msg("autoplay rejected")
	}
}
