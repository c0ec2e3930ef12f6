// Package app assembles the opname engine on top of the configured backend.
// cmd/server and cmd/opnamectl share it.
package app

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/cache"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/numerator"
	"backoffice/internal/infrastructure/storage/memory"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/internal/infrastructure/storage/postgres/inventory_repo"
	"backoffice/internal/infrastructure/storage/postgres/opname_repo"
	"backoffice/internal/infrastructure/storage/postgres/register_repo"
	"backoffice/pkg/logger"
)

// App holds the wired services.
type App struct {
	Config  config.Config
	Opname  *opname.Service
	Review  *opname.ReviewService
	History opname.HistoryReader
	Ledger  opname.MovementLedger

	// Exactly one of Pool and Memory is set.
	Pool      *postgres.Pool
	Inventory *inventory_repo.Repo
	Memory    *memory.Store

	Products    *cache.ProductCache
	invalidator *cache.Invalidator
	checks      []handlers.HealthCheck
	closers     []func()
}

// New connects the backend selected by cfg.Storage.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}
	engineCfg := opname.DefaultConfig()
	engineCfg.CodePrefix = cfg.CodePrefix

	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.New()
		a.Memory = store
		a.Opname = opname.NewService(store, store, store, store, store, engineCfg)
		a.Opname.SetAuditRecorder(store)
		a.Opname.SetMovementLedger(store)
		a.Review = opname.NewReviewService(store)
		a.History = store
		a.Ledger = store
		logger.Warn(ctx, "using in-memory storage; data is lost on exit")

	case config.StoragePostgres:
		if err := a.wirePostgres(ctx, cfg, engineCfg); err != nil {
			a.Close()
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	registerHooks(a.Opname)
	return a, nil
}

func (a *App) wirePostgres(ctx context.Context, cfg config.Config, engineCfg opname.Config) error {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)
	a.checks = append(a.checks, handlers.HealthCheck{Name: "database", Ping: pool.Ping})

	txm := postgres.NewTxManager(pool, postgres.WithStatementTimeout(cfg.TxStatementTimeout))
	repo := opname_repo.New(txm)
	a.Inventory = inventory_repo.New(txm)

	var store cache.Store
	if cfg.RedisAddr != "" {
		redisStore := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisStore.Ping(ctx); err != nil {
			// The cache is optional; reads fall through to the database.
			logger.Warn(ctx, "redis unavailable, product cache degraded", "addr", cfg.RedisAddr, "error", err)
		}
		a.closers = append(a.closers, func() { _ = redisStore.Close() })
		a.checks = append(a.checks, handlers.HealthCheck{Name: "redis", Ping: redisStore.Ping})
		store = redisStore
	} else {
		store = cache.NewMemoryStore()
	}
	a.Products = cache.NewProductCache(a.Inventory, store, cfg.ProductCacheTTL)
	a.invalidator = cache.NewInvalidator(pool.Pool, a.Products)

	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		return err
	}
	recorder := opname_repo.NewAuditRecorder(auditService)

	a.Opname = opname.NewService(repo, a.Products, a.Inventory, numerator.New(pool), txm, engineCfg)
	a.Opname.SetAuditRecorder(recorder)
	a.Ledger = register_repo.NewStockRepo(txm)
	a.Opname.SetMovementLedger(a.Ledger)
	a.Review = opname.NewReviewService(repo)
	a.History = recorder
	return nil
}

// StartBackground starts cache invalidation. It stops with ctx or Close.
func (a *App) StartBackground(ctx context.Context) {
	if a.invalidator != nil {
		a.invalidator.Start(ctx)
	}
	if a.Pool != nil {
		go a.logPoolStats(ctx, 5*time.Minute)
	}
}

func (a *App) logPoolStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Pool.LogStats(ctx)
		}
	}
}

// HealthHandler builds the health endpoints for the wired backend.
func (a *App) HealthHandler(version string) *handlers.HealthHandler {
	h := handlers.NewHealthHandler(version, a.Config.Storage, a.checks...)
	if a.Pool != nil {
		h.WithInfo(func() any { return a.Pool.Stats() })
	}
	return h
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	if a.invalidator != nil {
		a.invalidator.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
