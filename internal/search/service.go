// Package search implements the aggregate query surface: cached,
// deduplicated, quality-filtered listing search across providers.
package search

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/cache"
	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/provider"
	"github.com/groupcart/catalog-cli/internal/quality"
)

// Params are the aggregate query parameters.
type Params struct {
	Q        string         `json:"q"`
	Platform model.Platform `json:"platform"`
	Offset   int            `json:"offset"`
	Limit    int            `json:"limit"`
	MinPrice float64        `json:"min_price"`
	MaxPrice float64        `json:"max_price"`
	MinMOQ   int            `json:"min_moq"`
	MaxMOQ   int            `json:"max_moq"`
	Headless bool           `json:"headless"`
	NoCache  bool           `json:"nocache"`
	Debug    bool           `json:"debug"`
}

// Result is one page of the filtered result set.
type Result struct {
	Items []model.NormalizedListing `json:"items"`
	Total int                       `json:"total"`
	Meta  map[string]any            `json:"meta,omitempty"`
}

// Fetcher is the upstream fan-out dependency, satisfied by
// fetch.Orchestrator.
type Fetcher interface {
	Fetch(ctx context.Context, platform model.Platform, query string, limit int, opts provider.SearchOpts) ([]model.ExternalListing, error)
}

// Deduper turns raw listings into canonical first-seen-wins records.
type Deduper func([]model.ExternalListing) []model.NormalizedListing

// Config tunes the search service.
type Config struct {
	// CacheTTL is how long a filtered result set stays cached. Default 5m.
	CacheTTL time.Duration
	// FetchLimit is the per-provider listing count requested upstream.
	// Default 60: one fetch serves several client pages.
	FetchLimit int
	// DefaultPageSize applies when a request omits limit. Default 20.
	DefaultPageSize int
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 60
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	return c
}

// Service runs the aggregate pipeline: cache, fetch, dedupe, filter, sort,
// paginate.
type Service struct {
	fetcher Fetcher
	dedupe  Deduper
	cache   *cache.Cache[[]model.NormalizedListing]
	cfg     Config
}

// New creates a search Service. The cache instance is injected so tests
// and the serve command control its lifecycle.
func New(fetcher Fetcher, dedupe Deduper, c *cache.Cache[[]model.NormalizedListing], cfg Config) *Service {
	return &Service{
		fetcher: fetcher,
		dedupe:  dedupe,
		cache:   c,
		cfg:     cfg.withDefaults(),
	}
}

// cacheKeyParams is the canonical identity of a result set. Pagination and
// debug flags are deliberately absent: one cached entry serves many pages.
type cacheKeyParams struct {
	Q        string         `json:"q"`
	Platform model.Platform `json:"platform"`
	MinPrice float64        `json:"min_price"`
	MaxPrice float64        `json:"max_price"`
	MinMOQ   int            `json:"min_moq"`
	MaxMOQ   int            `json:"max_moq"`
	Headless bool           `json:"headless"`
}

// CacheKey returns the canonical cache key for p.
func CacheKey(p Params) string {
	raw, _ := json.Marshal(cacheKeyParams{
		Q:        p.Q,
		Platform: p.Platform,
		MinPrice: p.MinPrice,
		MaxPrice: p.MaxPrice,
		MinMOQ:   p.MinMOQ,
		MaxMOQ:   p.MaxMOQ,
		Headless: p.Headless,
	})
	return string(raw)
}

// Search runs the aggregate query. Provider failures degrade to fewer (or
// zero) items; the only error is an unsupported platform selector.
func (s *Service) Search(ctx context.Context, p Params) (*Result, error) {
	if p.Platform == "" {
		p.Platform = model.PlatformAll
	}
	if p.Limit <= 0 {
		p.Limit = s.cfg.DefaultPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	key := CacheKey(p)
	cacheStatus := "bypass"

	var full []model.NormalizedListing
	if !p.NoCache {
		if hit, ok := s.cache.Get(key); ok {
			full = hit
			cacheStatus = "hit"
		} else {
			cacheStatus = "miss"
		}
	}

	if cacheStatus != "hit" {
		raw, err := s.fetcher.Fetch(ctx, p.Platform, p.Q, s.cfg.FetchLimit, provider.SearchOpts{Headless: p.Headless})
		if err != nil {
			return nil, err
		}
		full = quality.Filter(s.dedupe(raw), quality.Bounds{
			MinPrice: p.MinPrice,
			MaxPrice: p.MaxPrice,
			MinMOQ:   p.MinMOQ,
			MaxMOQ:   p.MaxMOQ,
		})
		if !p.NoCache {
			s.cache.Set(key, full, s.cfg.CacheTTL)
		}
	}

	res := &Result{
		Items: paginate(full, p.Offset, p.Limit),
		Total: len(full),
	}
	if p.Debug {
		res.Meta = map[string]any{
			"cache":     cacheStatus,
			"key":       key,
			"pool_size": len(full),
		}
	}

	zap.L().Debug("search complete",
		zap.String("query", p.Q),
		zap.String("platform", p.Platform.String()),
		zap.String("cache", cacheStatus),
		zap.Int("total", res.Total),
		zap.Int("page_items", len(res.Items)),
	)
	return res, nil
}

// paginate slices the cached result set. Items is never nil so the JSON
// surface renders `[]`, not `null`.
func paginate(items []model.NormalizedListing, offset, limit int) []model.NormalizedListing {
	if offset >= len(items) {
		return []model.NormalizedListing{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page := make([]model.NormalizedListing, end-offset)
	copy(page, items[offset:end])
	return page
}
