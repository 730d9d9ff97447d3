// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestController_LoadClose_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	target := &fakeTarget{}
	var eng *fakeEngine
	c := NewController(target, Options{
		Resolver: staticResolver(testManifest, true),
		Engine: func(EngineConfig) Engine {
			eng = newFakeEngine()
			return eng
		},
	})

	c.Load(context.Background(), testSource, Intent{PreferAdaptive: true})
	require.Eventually(t, func() bool {
		return c.State() == ModeLibraryHLS
	}, time.Second, 2*time.Millisecond)

	c.Close()
	require.Eventually(t, eng.isDestroyed, time.Second, 2*time.Millisecond)
}
