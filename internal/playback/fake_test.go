// SPDX-License-Identifier: MIT

package playback

import (
	"sync"
)

// fakeTarget records every interaction with the render surface.
type fakeTarget struct {
	mu        sync.Mutex
	nativeHLS bool
	playErr   error

	sources    []string
	embeds     []string
	configured []Intent
	playCalls  int
}

func (f *fakeTarget) SupportsNativeHLS() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nativeHLS
}

func (f *fakeTarget) SetSource(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, url)
}

func (f *fakeTarget) ShowEmbed(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, url)
}

func (f *fakeTarget) Configure(intent Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configured = append(f.configured, intent)
}

func (f *fakeTarget) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	return f.playErr
}

func (f *fakeTarget) lastSource() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sources) == 0 {
		return ""
	}
	return f.sources[len(f.sources)-1]
}

func (f *fakeTarget) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playCalls
}

// fakeEngine implements Engine with scriptable events.
type fakeEngine struct {
	mu     sync.Mutex
	events chan Event

	attached    RenderTarget
	loaded      []string
	startLoads  int
	recoveries  int
	destroyed   bool
	destroyOnce sync.Once
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan Event, 16)}
}

func (f *fakeEngine) AttachMedia(target RenderTarget) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = target
}

func (f *fakeEngine) LoadSource(manifestURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, manifestURL)
}

func (f *fakeEngine) StartLoad() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startLoads++
}

func (f *fakeEngine) RecoverMediaError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recoveries++
}

func (f *fakeEngine) Destroy() {
	f.destroyOnce.Do(func() {
		f.mu.Lock()
		f.destroyed = true
		f.mu.Unlock()
		close(f.events)
	})
}

func (f *fakeEngine) Events() <-chan Event { return f.events }

func (f *fakeEngine) emit(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return
	}
	f.events <- ev
}

func (f *fakeEngine) emitFatal(category ErrorCategory) {
	f.emit(Event{Type: EventError, Err: &EngineError{Category: category, Fatal: true, Cause: "test"}})
}

func (f *fakeEngine) isDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func (f *fakeEngine) startLoadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startLoads
}

func (f *fakeEngine) recoveryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recoveries
}
