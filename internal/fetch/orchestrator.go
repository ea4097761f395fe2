// Package fetch fans a search query out to provider adapters and merges
// their results, isolating per-provider failures so one degraded source
// never sinks an aggregate request.
package fetch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/provider"
	"github.com/groupcart/catalog-cli/internal/resilience"
)

// Config tunes orchestrator behavior.
type Config struct {
	// Timeout bounds each provider call. Default 20s.
	Timeout time.Duration
	// RatePerSecond throttles calls per provider. Default 2.
	RatePerSecond float64
	// CircuitThreshold is consecutive failures before a provider's circuit
	// opens. Default 5.
	CircuitThreshold int
	// CircuitReset is how long an open circuit rejects calls. Default 30s.
	CircuitReset time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 2
	}
	if c.CircuitThreshold <= 0 {
		c.CircuitThreshold = 5
	}
	if c.CircuitReset <= 0 {
		c.CircuitReset = 30 * time.Second
	}
	return c
}

// Orchestrator issues provider fetches with per-call timeouts, per-provider
// rate limits, and per-provider circuit breakers.
type Orchestrator struct {
	registry *provider.Registry
	cfg      Config
	limiters map[string]*rate.Limiter
	breakers map[string]*resilience.CircuitBreaker
}

// New creates an Orchestrator over the registry.
func New(registry *provider.Registry, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		registry: registry,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
	for _, p := range registry.All() {
		o.limiters[p.Name()] = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
		o.breakers[p.Name()] = resilience.NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitReset)
	}
	return o
}

// Fetch runs the query against the providers selected by platform. A
// timed-out, failing, or circuit-rejected provider contributes an empty
// slice; results are concatenated in provider registration order so the
// merge is deterministic before the downstream sort. The only error
// returned is caller misuse: provider.ErrUnsupportedPlatform.
func (o *Orchestrator) Fetch(ctx context.Context, platform model.Platform, query string, limit int, opts provider.SearchOpts) ([]model.ExternalListing, error) {
	providers, err := o.registry.ForSelector(platform)
	if err != nil {
		return nil, err
	}

	results := make([][]model.ExternalListing, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			results[i] = o.fetchOne(gctx, p, query, limit, opts)
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.ExternalListing
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// fetchOne wraps a single provider call in the isolation machinery. All
// failure modes collapse to an empty slice; the cause is logged, never
// propagated.
func (o *Orchestrator) fetchOne(ctx context.Context, p provider.Provider, query string, limit int, opts provider.SearchOpts) []model.ExternalListing {
	log := zap.L().With(
		zap.String("provider", p.Name()),
		zap.String("query", query),
	)

	breaker := o.breakers[p.Name()]
	if breaker != nil {
		if err := breaker.Allow(); err != nil {
			log.Warn("provider skipped, circuit open")
			return nil
		}
	}

	if limiter := o.limiters[p.Name()]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	listings, err := p.Search(callCtx, query, limit, opts)
	if breaker != nil {
		breaker.Record(err)
	}
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			log.Warn("provider timed out", zap.Duration("timeout", o.cfg.Timeout))
		} else {
			log.Warn("provider failed", zap.Error(err))
		}
		return nil
	}

	log.Debug("provider fetch complete", zap.Int("listings", len(listings)))
	return listings
}
