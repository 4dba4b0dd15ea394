// Package app wires configuration into a running graph service: the cache
// store backend, the cache manager, the snapshot repository, the error
// reporter and the event bus.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"resourcegraph/internal/apperr"
	"resourcegraph/internal/cache"
	"resourcegraph/internal/config"
	"resourcegraph/internal/repository"
	"resourcegraph/internal/repository/sqlite"
	"resourcegraph/internal/service"
	"resourcegraph/internal/storage/badger"
	"resourcegraph/internal/watcher"
)

// sqlitePageSize is the SQLite default page size, used to turn a byte quota
// into max_page_count
const sqlitePageSize = 4096

// App holds the wired components
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Reporter *apperr.Reporter
	Bus      *service.EventBus
	Cache    *cache.Manager
	Service  *service.GraphService

	store cache.Store
	repo  repository.Repository
}

// New opens the configured store and builds the service. The snapshot
// persisted by a previous run is restored; a configured snapshot file is
// then loaded over it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Reporter: apperr.NewReporter(logger),
		Bus:      service.NewEventBus(),
	}

	store, repo, err := openStore(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	a.store, a.repo = store, repo

	a.Cache, err = cache.Open(ctx, store, cache.Options{
		KeyPrefix:        cfg.Cache.KeyPrefix,
		Version:          cfg.Cache.Version,
		WriteDebounce:    cfg.Cache.WriteDebounce.Duration(),
		MaxSizeBytes:     cfg.Cache.MaxSizeBytes,
		MinPruneInterval: cfg.Cache.MinPruneInterval.Duration(),
		Logger:           logger,
		Reporter:         a.Reporter,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	a.Service = service.NewGraphService(repo, a.Cache, a.Bus, service.Options{
		Namespace: cfg.Cache.Namespace,
		Layout:    cfg.Layout.Layout(),
		Logger:    logger,
		Reporter:  a.Reporter,
	})
	a.Reporter.Register(a.Service.ErrorHandler())

	if err := a.Service.Restore(ctx); err != nil {
		logger.Warn("could not restore previous snapshot", "error", err)
	}
	if path := cfg.Snapshot.Path; path != "" {
		if err := a.Service.ReloadFromFile(ctx, path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				a.Close(ctx)
				return nil, fmt.Errorf("load snapshot: %w", err)
			}
			logger.Warn("snapshot file not found", "path", path)
		}
	}

	return a, nil
}

// openStore returns the cache store for the backend and, for SQLite, the
// same database as snapshot repository
func openStore(cfg config.CacheConfig, logger *slog.Logger) (cache.Store, repository.Repository, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		var opts []sqlite.Option
		if cfg.QuotaBytes > 0 {
			opts = append(opts, sqlite.WithMaxPageCount(max(cfg.QuotaBytes/sqlitePageSize, 1)))
		}
		repo, err := sqlite.New(cfg.Path, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache %s: %w", cfg.Path, err)
		}
		return repo, repo, nil

	case config.BackendBadger:
		bcfg := badger.DefaultConfig()
		bcfg.Path = cfg.Path
		bcfg.QuotaBytes = cfg.QuotaBytes
		bcfg.Logger = logger
		store, err := badger.Open(bcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger cache %s: %w", cfg.Path, err)
		}
		return store, nil, nil

	case config.BackendMemory:
		return cache.NewMemoryStore().WithQuota(cfg.QuotaBytes), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown cache backend %q", config.ErrInvalidConfig, cfg.Backend)
}

// WatchSnapshot reloads the configured snapshot file on change until ctx
// is cancelled. Failed reloads are reported and keep the previous snapshot.
func (a *App) WatchSnapshot(ctx context.Context) error {
	path := a.Config.Snapshot.Path
	if path == "" {
		return errors.New("no snapshot path configured")
	}

	w := watcher.New(path, func() {
		if err := a.Service.ReloadFromFile(ctx, path); err != nil {
			a.Reporter.Report(apperr.ResourceData("snapshot.reload", err).
				WithMessage("The changed snapshot could not be loaded."))
		}
	}).WithDebounce(a.Config.Snapshot.WatchDebounce.Duration()).WithLogger(a.Logger)

	return w.Watch(ctx)
}

// Close flushes the cache and closes the store
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Service.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush cache: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
