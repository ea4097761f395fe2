package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/groupcart/catalog-cli/internal/cache"
	"github.com/groupcart/catalog-cli/internal/fetch"
	"github.com/groupcart/catalog-cli/internal/imagecache"
	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/normalize"
	"github.com/groupcart/catalog-cli/internal/provider"
	"github.com/groupcart/catalog-cli/internal/search"
	"github.com/groupcart/catalog-cli/internal/store"
	"github.com/groupcart/catalog-cli/internal/taxonomy"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSearchService assembles the provider registry and the full search
// pipeline from config.
func initSearchService() *search.Service {
	alibabaOpts := []provider.AlibabaOption{}
	if cfg.Alibaba.BaseURL != "" {
		alibabaOpts = append(alibabaOpts, provider.WithAlibabaBaseURL(cfg.Alibaba.BaseURL))
	}
	aliexpressOpts := []provider.AliexpressOption{}
	if cfg.Aliexpress.BaseURL != "" {
		aliexpressOpts = append(aliexpressOpts, provider.WithAliexpressBaseURL(cfg.Aliexpress.BaseURL))
	}
	if cfg.Aliexpress.RenderURL != "" {
		aliexpressOpts = append(aliexpressOpts, provider.WithAliexpressRenderURL(cfg.Aliexpress.RenderURL))
	}

	registry := provider.NewRegistry(
		provider.NewAlibaba(alibabaOpts...),
		provider.NewAliexpress(aliexpressOpts...),
	)

	orchestrator := fetch.New(registry, fetch.Config{
		Timeout:          time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RatePerSecond:    cfg.Fetch.RatePerSecond,
		CircuitThreshold: cfg.Fetch.CircuitThreshold,
		CircuitReset:     time.Duration(cfg.Fetch.CircuitResetSecs) * time.Second,
	})

	return search.New(orchestrator, normalize.Dedupe, cache.New[[]model.NormalizedListing](), search.Config{
		CacheTTL:        time.Duration(cfg.Search.CacheTTLMins) * time.Minute,
		FetchLimit:      cfg.Fetch.Limit,
		DefaultPageSize: cfg.Search.DefaultPageSize,
	})
}

func initTaxonomy() (taxonomy.Provider, error) {
	return taxonomy.Load(cfg.Taxonomy.Path)
}

func initImages() (imagecache.Cacher, error) {
	if cfg.Images.Dir == "" {
		return imagecache.Noop{}, nil
	}
	return imagecache.NewDiskCacher(cfg.Images.Dir)
}
