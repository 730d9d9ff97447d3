// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/metrics"
)

// Outcome classifies one revalidation check.
type Outcome string

const (
	// OutcomeStillValid means the manifest still validates as playable.
	OutcomeStillValid Outcome = "still_valid"
	// OutcomeDemoted means the manifest is reachable but no longer playable,
	// or definitively gone; the record must be dropped.
	OutcomeDemoted Outcome = "demoted"
	// OutcomeCheckFailed means the check itself failed (network error); the
	// record is kept and retried on the next cadence.
	OutcomeCheckFailed Outcome = "check_failed"
)

// CheckFunc revalidates one manifest URL. Implementations must not panic and
// must honor ctx cancellation.
type CheckFunc func(ctx context.Context, manifestURL string) Outcome

// Demoted is an optional hook invoked for every dropped record, so the
// caller can invalidate its request cache alongside the ledger.
type Demoted func(ctx context.Context, rec Record)

// Worker periodically re-probes every recorded rendition. CDN contents
// drift: renditions get repackaged, renamed or deleted, and a confirmed
// entry must not outlive the manifest it points to.
type Worker struct {
	store    *Store
	check    CheckFunc
	onDemote Demoted
	cadence  time.Duration
	busy     atomic.Bool
	logger   zerolog.Logger

	afterSweep func(ctx context.Context)
}

// AfterSweep registers a hook invoked after every completed sweep, for
// example to export a ledger snapshot. Must be set before Start.
func (w *Worker) AfterSweep(fn func(ctx context.Context)) {
	w.afterSweep = fn
}

// NewWorker creates a revalidation worker.
func NewWorker(store *Store, cadence time.Duration, check CheckFunc, onDemote Demoted) *Worker {
	return &Worker{
		store:    store,
		check:    check,
		onDemote: onDemote,
		cadence:  cadence,
		logger:   log.WithComponent("revalidation"),
	}
}

// Start begins the revalidation loop. It blocks until ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cadence)
	defer ticker.Stop()

	w.tryRun(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tryRun(ctx)
		}
	}
}

// tryRun executes one sweep unless the previous one is still going.
func (w *Worker) tryRun(ctx context.Context) {
	if !w.busy.CompareAndSwap(false, true) {
		return
	}
	defer w.busy.Store(false)
	w.RunOnce(ctx)
}

// RunOnce sweeps the ledger a single time. Exported for tests and for the
// daemon's startup sweep.
func (w *Worker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	records, err := w.store.List(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("listing ledger failed")
		return
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}

		outcome := w.check(ctx, rec.ManifestURL)
		metrics.RecordRevalidation(string(outcome))

		switch outcome {
		case OutcomeStillValid:
			rec.CheckedAt = time.Now()
			if err := w.store.Put(ctx, rec); err != nil {
				w.logger.Warn().Err(err).Str(log.FieldSource, rec.SourceURL).Msg("refreshing ledger record failed")
			}
		case OutcomeDemoted:
			w.logger.Info().
				Str(log.FieldSource, rec.SourceURL).
				Str(log.FieldManifest, rec.ManifestURL).
				Msg("rendition no longer playable, dropping record")
			if err := w.store.Delete(ctx, rec.SourceURL); err != nil {
				w.logger.Warn().Err(err).Str(log.FieldSource, rec.SourceURL).Msg("dropping ledger record failed")
				continue
			}
			if w.onDemote != nil {
				w.onDemote(ctx, rec)
			}
		case OutcomeCheckFailed:
			w.logger.Debug().
				Str(log.FieldManifest, rec.ManifestURL).
				Msg("revalidation check failed, keeping record")
		}
	}

	if w.afterSweep != nil {
		w.afterSweep(ctx)
	}
}
