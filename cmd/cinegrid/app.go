package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/cinegrid/internal/config"
	"github.com/Sternrassler/cinegrid/pkg/catalog"
	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/Sternrassler/cinegrid/pkg/tmdb"
	"github.com/redis/go-redis/v9"
)

// app wires the TMDB client and the grid service from a Config.
type app struct {
	redis   *redis.Client
	client  *tmdb.Client
	service *catalog.Service
}

func newApp(ctx context.Context, cfg *config.Config, prefetch bool, opts ...tmdb.Option) (*app, error) {
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: set TMDB_API_KEY or TMDB_ACCESS_TOKEN", tmdb.ErrMissingCredentials)
	}

	a := &app{}
	if cfg.Redis.Enabled() {
		redisOpts, err := cfg.Redis.Options()
		if err != nil {
			return nil, err
		}
		a.redis = redis.NewClient(redisOpts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", redisOpts.Addr, err)
		}
	}

	tmdbCfg := tmdb.DefaultConfig(a.redis, cfg.TMDB.APIKey)
	tmdbCfg.AccessToken = cfg.TMDB.AccessToken
	tmdbCfg.BaseURL = cfg.TMDB.BaseURL
	tmdbCfg.Language = cfg.TMDB.Language
	tmdbCfg.UserAgent = cfg.TMDB.UserAgent
	tmdbCfg.RequestsPerSecond = cfg.TMDB.RequestsPerSecond
	tmdbCfg.Timeout = cfg.TMDB.Timeout
	tmdbCfg.FetchTimeout = cfg.TMDB.FetchTimeout
	tmdbCfg.CacheStaleWindow = cfg.TMDB.StaleWindow

	client, err := tmdb.New(tmdbCfg, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create TMDB client: %w", err)
	}
	a.client = client

	var svcOpts []catalog.Option
	// Prefetched pages only help when they land in the shared cache.
	if prefetch && cfg.Catalog.Prefetch && a.redis != nil {
		svcOpts = append(svcOpts, catalog.WithPrefetch(pagination.BatchConfig{
			MaxConcurrency: cfg.Catalog.PrefetchConcurrency,
			Timeout:        cfg.Catalog.PrefetchTimeout,
		}))
	}
	a.service = catalog.NewService(catalog.TMDB{Client: client}, svcOpts...)

	return a, nil
}

// Close stops background prefetches and releases Redis.
func (a *app) Close() {
	if a.service != nil {
		a.service.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
