package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/store"
	"github.com/groupcart/catalog-cli/pkg/rescrape"
)

// Config tunes the batch enrichment runner.
type Config struct {
	// ProgressPath is the checkpoint file for resumable runs.
	ProgressPath string
	// BatchSize is how many listings are claimed per batch.
	BatchSize int
	// Concurrency bounds the re-scrape calls in flight within a batch.
	Concurrency int
	// MinAttrs selects listings whose attribute count is below it.
	MinAttrs int
	// BlockThreshold is the consecutive-failure count that, when the
	// streak includes fallback responses, signals the marketplace has
	// started blocking us.
	BlockThreshold int
	// Cooldown is how long the runner pauses after block detection.
	Cooldown time.Duration
	// BatchDelay is the pause between batches.
	BatchDelay time.Duration
	// RateLimitBackoff is the extra pause applied when more than half of a
	// batch came back rate limited.
	RateLimitBackoff time.Duration
	// MaxListings caps total listings processed this run. Zero means no cap.
	MaxListings int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MinAttrs <= 0 {
		c.MinAttrs = goodAttrThreshold
	}
	if c.BlockThreshold <= 0 {
		c.BlockThreshold = 15
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Minute
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 2 * time.Second
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = time.Minute
	}
	return c
}

// Runner walks the attribute-poor listings in the store and re-scrapes
// each one, checkpointing after every batch so an interrupted run resumes
// where it left off.
type Runner struct {
	store  store.Store
	client rescrape.Client
	cfg    Config

	// sleep allows test injection of the pause behavior.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner.
func NewRunner(st store.Store, client rescrape.Client, cfg Config) *Runner {
	return &Runner{
		store:  st,
		client: client,
		cfg:    cfg.withDefaults(),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// batchOutcome is the classified result for one listing, kept in batch
// order so the failure streak is deterministic under concurrent dispatch.
type batchOutcome struct {
	ref         store.ListingRef
	outcome     Outcome
	attributes  int
	rateLimited bool
}

// Run processes listings until none need enrichment, the cap is reached,
// or the context is cancelled. On cancellation it persists the checkpoint
// and returns the context error; on normal completion it removes the
// checkpoint file.
func (r *Runner) Run(ctx context.Context) error {
	progress, err := LoadProgress(r.cfg.ProgressPath)
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("run_id", progress.RunID))

	if progress.Offset > 0 {
		log.Info("ingest: resuming run", zap.Int("offset", progress.Offset))
	} else {
		log.Info("ingest: starting run")
	}

	processed := 0
	// streakFallback marks that the current failure streak includes at
	// least one fallback-classified response. Only such streaks count as
	// upstream blocking.
	streakFallback := false
	for {
		if err := ctx.Err(); err != nil {
			return r.persistAndStop(progress, err, log)
		}
		if r.cfg.MaxListings > 0 && processed >= r.cfg.MaxListings {
			log.Info("ingest: listing cap reached", zap.Int("processed", processed))
			return SaveProgress(r.cfg.ProgressPath, progress)
		}

		batchSize := r.cfg.BatchSize
		if r.cfg.MaxListings > 0 && r.cfg.MaxListings-processed < batchSize {
			batchSize = r.cfg.MaxListings - processed
		}

		refs, err := r.store.ListNeedingEnrichment(ctx, r.cfg.MinAttrs, batchSize, progress.Offset)
		if err != nil {
			return eris.Wrap(err, "ingest: list batch")
		}
		if len(refs) == 0 {
			log.Info("ingest: run complete",
				zap.Int("succeeded", progress.Succeeded),
				zap.Int("partial", progress.Partial),
				zap.Int("failed", progress.Failed),
			)
			return ClearProgress(r.cfg.ProgressPath)
		}

		outcomes := r.processBatch(ctx, refs)
		rateLimited := r.applyOutcomes(ctx, outcomes, progress, &streakFallback, log)
		processed += len(refs)
		progress.Offset += len(refs)

		// A checkpoint write failure costs at most one batch of resume
		// state; the run keeps going.
		if err := SaveProgress(r.cfg.ProgressPath, progress); err != nil {
			log.Warn("ingest: save checkpoint", zap.Error(err))
		}

		// Blocking means the streak reached the threshold and the upstream
		// served fallback pages during it. The counter restarts at zero so
		// another full streak triggers another cooldown.
		if progress.ConsecutiveFailures >= r.cfg.BlockThreshold && streakFallback {
			log.Warn("ingest: block detected, cooling down",
				zap.Int("consecutive_failures", progress.ConsecutiveFailures),
				zap.Duration("cooldown", r.cfg.Cooldown),
			)
			progress.ConsecutiveFailures = 0
			streakFallback = false
			if err := SaveProgress(r.cfg.ProgressPath, progress); err != nil {
				log.Warn("ingest: save checkpoint", zap.Error(err))
			}
			if err := r.sleep(ctx, r.cfg.Cooldown); err != nil {
				return r.persistAndStop(progress, err, log)
			}
		}

		delay := r.cfg.BatchDelay
		if rateLimited*2 > len(refs) {
			log.Warn("ingest: batch mostly rate limited, backing off",
				zap.Int("rate_limited", rateLimited),
				zap.Int("batch", len(refs)),
			)
			delay += r.cfg.RateLimitBackoff
		}
		if err := r.sleep(ctx, delay); err != nil {
			return r.persistAndStop(progress, err, log)
		}
	}
}

// processBatch dispatches one batch concurrently and returns outcomes in
// listing order.
func (r *Runner) processBatch(ctx context.Context, refs []store.ListingRef) []batchOutcome {
	outcomes := make([]batchOutcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			res, err := r.client.Trigger(gctx, ref.ID)
			outcomes[i] = batchOutcome{
				ref:         ref,
				outcome:     Classify(res, err),
				rateLimited: rescrape.IsRateLimited(err),
			}
			if res != nil {
				outcomes[i].attributes = res.Attributes
			}
			return nil
		})
	}
	// Workers never return errors; failures are carried in the outcomes.
	_ = g.Wait()
	return outcomes
}

// applyOutcomes updates store rows and run counters, returning how many
// listings in the batch were rate limited. Any bad result extends the
// failure streak; only good and partial break it. Transport errors leave
// the streak untouched since no content was reached.
func (r *Runner) applyOutcomes(ctx context.Context, outcomes []batchOutcome, progress *model.JobProgress, streakFallback *bool, log *zap.Logger) int {
	rateLimited := 0
	for _, o := range outcomes {
		switch o.outcome {
		case OutcomeGood:
			progress.Succeeded++
			progress.ConsecutiveFailures = 0
			*streakFallback = false
		case OutcomePartial:
			progress.Partial++
			progress.ConsecutiveFailures = 0
			*streakFallback = false
		case OutcomeBad:
			progress.Failed++
			progress.ConsecutiveFailures++
		case OutcomeFallback:
			progress.Failed++
			progress.ConsecutiveFailures++
			*streakFallback = true
		case OutcomeError:
			progress.Failed++
		}
		if o.rateLimited {
			rateLimited++
		}

		if o.outcome == OutcomeGood || o.outcome == OutcomePartial || o.outcome == OutcomeBad {
			if err := r.store.SetAttributeCount(ctx, o.ref.ID, o.attributes); err != nil {
				log.Warn("ingest: record attribute count",
					zap.String("listing_id", o.ref.ID), zap.Error(err))
			}
		}

		log.Debug("ingest: listing processed",
			zap.String("listing_id", o.ref.ID),
			zap.String("outcome", o.outcome.String()),
			zap.Int("attributes", o.attributes),
		)
	}
	return rateLimited
}

func (r *Runner) persistAndStop(progress *model.JobProgress, cause error, log *zap.Logger) error {
	if err := SaveProgress(r.cfg.ProgressPath, progress); err != nil {
		log.Error("ingest: persist checkpoint on stop", zap.Error(err))
		return err
	}
	log.Info("ingest: stopped, checkpoint saved",
		zap.Int("offset", progress.Offset),
		zap.Int("consecutive_failures", progress.ConsecutiveFailures),
	)
	return cause
}
