// Package app builds the dashboard object graph from configuration. Both the
// HTTP server and the CLI start from it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/dmrb/internal/aggregator"
	"github.com/stwalsh4118/dmrb/internal/config"
	"github.com/stwalsh4118/dmrb/internal/deriver"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/refresh"
	"github.com/stwalsh4118/dmrb/internal/repository"
	"github.com/stwalsh4118/dmrb/internal/services"
	"github.com/stwalsh4118/dmrb/internal/source"
)

// App holds the wired components.
type App struct {
	Repo    repository.WorkbookRepository
	Service services.DashboardService
	// Scheduler is nil when REFRESH_SCHEDULE is empty.
	Scheduler *refresh.Scheduler

	closers []func() error
}

// New wires the cache, source, repository, deriver, aggregator and service.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{}

	store := a.newStore(cfg, log)
	fetcher := newFetcher(cfg.Source)
	cached := source.NewCachedSource(fetcher, store, cfg.Source.CacheTTL, log.WithComponent("source"))
	a.Repo = repository.NewWorkbookRepository(cached, cfg.WorkbookOptions())

	rules, err := deriver.NewRules(cfg.DeriverRules())
	if err != nil {
		return nil, fmt.Errorf("failed to build classification rules: %w", err)
	}
	agg, err := aggregator.New(cfg.AggregatorConfig(), log.WithComponent("aggregator"))
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregator: %w", err)
	}

	a.Service = services.NewDashboardService(
		a.Repo,
		deriver.New(rules, log.WithComponent("deriver")),
		agg,
		cfg.Location(),
		log.WithComponent("dashboard"),
	)

	if cfg.Refresh.Schedule != "" {
		load := func(ctx context.Context) error {
			_, err := a.Repo.Load(ctx)
			return err
		}
		a.Scheduler, err = refresh.NewScheduler(cfg.Refresh.Schedule, a.Repo, load, cfg.Source.Timeout, cfg.Location(), log.WithComponent("refresh"))
		if err != nil {
			return nil, fmt.Errorf("failed to build refresh scheduler: %w", err)
		}
	}

	log.Info("Dashboard wired", map[string]interface{}{
		"source":    fetcher.Describe(),
		"cache_ttl": cfg.Source.CacheTTL.String(),
		"redis":     cfg.Redis.Addr != "",
		"refresh":   cfg.Refresh.Schedule,
		"timezone":  cfg.Location().String(),
	})

	return a, nil
}

// newStore picks Redis when REDIS_ADDR is set and the in-process cache otherwise.
func (a *App) newStore(cfg *config.Config, log *logger.Logger) source.KVStore {
	if cfg.Redis.Addr == "" {
		return source.NewMemoryStore()
	}

	client := source.NewRedisClient(source.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)
	log.Debug("Using Redis workbook cache", map[string]interface{}{
		"addr": cfg.Redis.Addr,
		"db":   cfg.Redis.DB,
	})
	return source.NewRedisStore(client)
}

// newFetcher prefers the export URL over the local file.
func newFetcher(cfg config.SourceConfig) source.Fetcher {
	if cfg.URL != "" {
		return source.NewHTTPFetcher(source.HTTPFetcherConfig{
			URL:     cfg.URL,
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
		})
	}
	return source.NewFileFetcher(cfg.File)
}

// Close releases external connections.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
