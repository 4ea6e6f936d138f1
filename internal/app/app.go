// Package app wires the ledger runtime shared by the server and the
// operator CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/cache"
	"ledgerpos/backend/internal/config"
	"ledgerpos/backend/internal/engine"
	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/report"
	"ledgerpos/backend/internal/resilience"
	"ledgerpos/backend/internal/service"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/store/memory"
	pgstore "ledgerpos/backend/internal/store/postgres"
)

type Runtime struct {
	Config    config.Config
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Gateway   store.Gateway
	Snapshots *snapshot.Store
	Service   *service.Service

	closers []func() error
}

// OpenGateway returns the postgres gateway when DATABASE_URL is set and the
// seeded in-memory gateway otherwise. The returned func releases it.
func OpenGateway(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Gateway, func() error, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("gateway: in-memory")
		return memory.NewSeeded(), func() error { return nil }, nil
	}

	if cfg.RunMigrations {
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	pg, err := pgstore.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
	}
	logger.Info("gateway: postgres")
	return pg, pg.Close, nil
}

// Open builds the gateway, snapshot store, summary cache and service.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	gw, closeGateway, err := OpenGateway(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Gateway = gw
	rt.closers = append(rt.closers, closeGateway)

	summaryCache := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			summaryCache = redisCache
			rt.closers = append(rt.closers, redisCache.Close)
			logger.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("cache: noop")
	}

	rt.Snapshots = snapshot.NewStore(logger)
	if err := rt.Snapshots.Attach(ctx, gw); err != nil {
		rt.Close()
		return nil, fmt.Errorf("attach snapshots: %w", err)
	}
	rt.closers = append(rt.closers, func() error {
		rt.Snapshots.Close()
		return nil
	})

	eng := engine.New(engine.WithCashAccount(cfg.CashAccountID))
	reports := report.NewEngine(summaryCache, cfg.SummaryTTL(), cfg.CashAccountID, rt.Metrics)
	rt.Service = service.New(gw, rt.Snapshots, eng, reports, service.Options{
		Logger:  logger,
		Metrics: rt.Metrics,
		Retry: resilience.Config{
			MaxRetries:     cfg.WriteMaxRetries,
			InitialBackoff: cfg.RetryBackoff(),
		},
		Compensate: cfg.CompensateOnFailure,
	})
	return rt, nil
}

// Close releases everything Open acquired, most recent first.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.Logger.Warn("close error", zap.Error(err))
		}
	}
	r.closers = nil
}
