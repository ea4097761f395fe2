package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/imagecache"
	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/search"
	"github.com/groupcart/catalog-cli/internal/store"
	"github.com/groupcart/catalog-cli/internal/taxonomy"
	"github.com/groupcart/catalog-cli/internal/terms"
)

// TopoffConfig tunes the category coverage job.
type TopoffConfig struct {
	// TargetPerLeaf is the stored-listing count each category leaf should
	// reach.
	TargetPerLeaf int
	// TermsPerLeaf caps how many generated queries are tried per leaf.
	TermsPerLeaf int
	// PerQueryLimit is the page size requested from the search pipeline.
	PerQueryLimit int
	// QueryDelay is the pause between search queries.
	QueryDelay time.Duration
	// Platform restricts fetching to one marketplace.
	Platform model.Platform
}

func (c TopoffConfig) withDefaults() TopoffConfig {
	if c.TargetPerLeaf <= 0 {
		c.TargetPerLeaf = 50
	}
	if c.TermsPerLeaf <= 0 {
		c.TermsPerLeaf = 8
	}
	if c.PerQueryLimit <= 0 {
		c.PerQueryLimit = 40
	}
	if c.QueryDelay <= 0 {
		c.QueryDelay = 3 * time.Second
	}
	if c.Platform == "" {
		c.Platform = model.PlatformAll
	}
	return c
}

// Topoff walks the category taxonomy and tops up underfilled leaves by
// running generated queries through the search pipeline and persisting
// the filtered results.
type Topoff struct {
	taxonomy taxonomy.Provider
	terms    *terms.Generator
	searcher *search.Service
	store    store.Store
	images   imagecache.Cacher
	cfg      TopoffConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// NewTopoff creates a Topoff job.
func NewTopoff(tax taxonomy.Provider, gen *terms.Generator, searcher *search.Service, st store.Store, images imagecache.Cacher, cfg TopoffConfig) *Topoff {
	if images == nil {
		images = imagecache.Noop{}
	}
	return &Topoff{
		taxonomy: tax,
		terms:    gen,
		searcher: searcher,
		store:    st,
		images:   images,
		cfg:      cfg.withDefaults(),
		sleep:    sleepCtx,
	}
}

// Run processes every leaf once. Leaves already at target are skipped.
// A leaf whose queries fail does not stop the walk.
func (t *Topoff) Run(ctx context.Context) error {
	log := zap.L()
	for _, leaf := range t.taxonomy.Leaves() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.runLeaf(ctx, leaf, log); err != nil {
			log.Error("topoff: leaf failed", zap.String("leaf", leaf.Key), zap.Error(err))
		}
	}
	return nil
}

func (t *Topoff) runLeaf(ctx context.Context, leaf model.CategoryLeaf, log *zap.Logger) error {
	have, err := t.store.CountListings(ctx, store.Filter{Platform: t.cfg.Platform, Category: leaf.Key})
	if err != nil {
		return eris.Wrapf(err, "topoff: count %s", leaf.Key)
	}
	if have >= t.cfg.TargetPerLeaf {
		log.Debug("topoff: leaf at target", zap.String("leaf", leaf.Key), zap.Int("have", have))
		return nil
	}
	log.Info("topoff: filling leaf",
		zap.String("leaf", leaf.Key),
		zap.Int("have", have),
		zap.Int("target", t.cfg.TargetPerLeaf),
	)

	for _, query := range t.terms.Generate(leaf, t.cfg.TermsPerLeaf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if have >= t.cfg.TargetPerLeaf {
			break
		}

		result, err := t.searcher.Search(ctx, search.Params{
			Q:        query,
			Platform: t.cfg.Platform,
			Limit:    t.cfg.PerQueryLimit,
		})
		if err != nil {
			log.Warn("topoff: query failed", zap.String("query", query), zap.Error(err))
			continue
		}

		records := make([]model.SavedListingRecord, 0, len(result.Items))
		for _, item := range result.Items {
			if _, imgErr := t.images.Cache(ctx, item.Image); imgErr != nil {
				log.Debug("topoff: image cache failed",
					zap.String("url", item.Image), zap.Error(imgErr))
			}
			records = append(records, model.SavedListingRecord{
				NormalizedListing: item,
				Categories:        []string{leaf.Key},
				Terms:             []string{query},
			})
		}

		written, err := t.store.UpsertListings(ctx, records)
		if err != nil {
			log.Warn("topoff: upsert failed", zap.String("query", query), zap.Error(err))
			continue
		}
		have += written
		log.Info("topoff: query stored",
			zap.String("leaf", leaf.Key),
			zap.String("query", query),
			zap.Int("written", written),
			zap.Int("have", have),
		)

		if err := t.sleep(ctx, t.cfg.QueryDelay); err != nil {
			return err
		}
	}
	return nil
}
