// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vodbridge/internal/api"
	"github.com/ManuGH/vodbridge/internal/cache"
	"github.com/ManuGH/vodbridge/internal/config"
	"github.com/ManuGH/vodbridge/internal/health"
	"github.com/ManuGH/vodbridge/internal/ledger"
	vblog "github.com/ManuGH/vodbridge/internal/log"
	"github.com/ManuGH/vodbridge/internal/resolve"
	"github.com/ManuGH/vodbridge/internal/telemetry"
	"github.com/ManuGH/vodbridge/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vodbridged %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vodbridged: %v\n", err)
		os.Exit(1)
	}

	vblog.Configure(vblog.Config{
		Level:   cfg.LogLevel,
		Service: "vodbridge",
		Version: version.Version,
	})
	logger := vblog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run(ctx context.Context, cfg config.Config, configPath string, logger zerolog.Logger) error {
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "vodbridge",
		ServiceVersion: version.Version,
		Protocol:       cfg.OTel.Protocol,
		Endpoint:       cfg.OTel.Endpoint,
		Insecure:       cfg.OTel.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	store, err := newCacheStore(cfg)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing cache failed")
		}
	}()

	ledgerStore, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := ledgerStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing ledger failed")
		}
	}()

	prober := resolve.NewHTTPProber(resolve.ProberConfig{
		Timeout:       cfg.Resolve.ProbeTimeout,
		RatePerSecond: cfg.Resolve.ProbeRate,
	})
	resolver := resolve.NewResolver(prober, resolve.Options{
		Extension:    cfg.Resolve.Extension,
		MarkerDir:    cfg.Resolve.MarkerDir,
		ManifestName: cfg.Resolve.ManifestName,
	})
	service := resolve.NewService(resolver, store, &ledgerRecorder{store: ledgerStore}, resolve.ServiceConfig{
		PositiveTTL: cfg.Resolve.PositiveTTL,
		NegativeTTL: cfg.Resolve.NegativeTTL,
	})

	worker := ledger.NewWorker(ledgerStore, cfg.Ledger.RevalidateEvery,
		revalidationCheck(prober),
		func(ctx context.Context, rec ledger.Record) {
			service.Invalidate(ctx, rec.SourceURL)
		},
	)
	if cfg.Ledger.ExportPath != "" {
		worker.AfterSweep(func(ctx context.Context) {
			if err := ledgerStore.Export(ctx, cfg.Ledger.ExportPath); err != nil {
				logger.Warn().Err(err).Str(vblog.FieldPath, cfg.Ledger.ExportPath).Msg("ledger export failed")
			}
		})
	}
	go worker.Start(ctx)

	holder := config.NewHolder(cfg, configPath)
	if err := holder.StartWatcher(ctx); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	updates := make(chan config.Config, 1)
	holder.Subscribe(updates)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-updates:
				vblog.SetLevel(next.LogLevel)
				service.SetTTLs(next.Resolve.PositiveTTL, next.Resolve.NegativeTTL)
				logger.Info().Str("level", next.LogLevel).Msg("configuration reloaded")
			}
		}
	}()

	healthMgr := health.NewManager(version.Version)
	healthMgr.RegisterChecker(cacheChecker(store))
	healthMgr.RegisterChecker(ledgerChecker(ledgerStore))

	handler := api.NewRouter(service, healthMgr, api.Config{
		RateLimit:       120,
		EmbedDomains:    cfg.Playback.EmbedDomains,
		TracingService:  tracingService(cfg),
		WatchdogTimeout: cfg.Playback.WatchdogTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}

func newCacheStore(cfg config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, vblog.WithComponent("cache"))
	default:
		return cache.NewMemoryStore(cfg.Cache.CleanupInterval), nil
	}
}

func tracingService(cfg config.Config) string {
	if cfg.OTel.Enabled {
		return "vodbridge"
	}
	return ""
}

// revalidationCheck adapts the prober's tri-state result to the ledger
// worker's outcome taxonomy.
func revalidationCheck(prober resolve.Prober) ledger.CheckFunc {
	return func(ctx context.Context, manifestURL string) ledger.Outcome {
		switch prober.Probe(ctx, manifestURL).Status {
		case resolve.ProbeConfirmed:
			return ledger.OutcomeStillValid
		case resolve.ProbeRejected:
			return ledger.OutcomeDemoted
		default:
			return ledger.OutcomeCheckFailed
		}
	}
}

// ledgerRecorder persists every confirmed resolution.
type ledgerRecorder struct {
	store *ledger.Store
}

func (r *ledgerRecorder) RecordConfirmed(ctx context.Context, sourceURL, manifestURL, strategy string) {
	now := time.Now()
	rec := ledger.Record{
		SourceURL:   sourceURL,
		ManifestURL: manifestURL,
		Strategy:    strategy,
		ConfirmedAt: now,
		CheckedAt:   now,
	}
	if err := r.store.Put(ctx, rec); err != nil {
		logger := vblog.WithComponent("ledger")
		logger.Warn().Err(err).
			Str(vblog.FieldSource, sourceURL).
			Msg("recording confirmed rendition failed")
	}
}

func cacheChecker(store cache.Store) health.Checker {
	return health.CheckerFunc{
		CheckName: "cache",
		Fn: func(ctx context.Context) health.CheckResult {
			if err := store.Ping(ctx); err != nil {
				return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
			}
			return health.CheckResult{Status: health.StatusHealthy}
		},
	}
}

func ledgerChecker(store *ledger.Store) health.Checker {
	return health.CheckerFunc{
		CheckName: "ledger",
		Fn: func(ctx context.Context) health.CheckResult {
			if _, err := store.List(ctx); err != nil {
				return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
			}
			return health.CheckResult{Status: health.StatusHealthy}
		},
	}
}
