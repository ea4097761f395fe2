package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/ingest"
	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/terms"
	"github.com/groupcart/catalog-cli/pkg/rescrape"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Catalog maintenance jobs",
}

var ingestRunFlags struct {
	maxListings int
	batchSize   int
}

var ingestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Re-scrape attribute-poor listings in resumable batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := rescrape.NewClient(cfg.Rescrape.BaseURL, cfg.Rescrape.Key)

		batchSize := cfg.Ingest.BatchSize
		if ingestRunFlags.batchSize > 0 {
			batchSize = ingestRunFlags.batchSize
		}

		runner := ingest.NewRunner(st, client, ingest.Config{
			ProgressPath:     cfg.Ingest.ProgressPath,
			BatchSize:        batchSize,
			Concurrency:      cfg.Ingest.Concurrency,
			MinAttrs:         cfg.Ingest.MinAttrs,
			BlockThreshold:   cfg.Ingest.BlockThreshold,
			Cooldown:         time.Duration(cfg.Ingest.CooldownMins) * time.Minute,
			BatchDelay:       time.Duration(cfg.Ingest.BatchDelaySecs) * time.Second,
			RateLimitBackoff: time.Duration(cfg.Ingest.RateLimitBackoffSecs) * time.Second,
			MaxListings:      ingestRunFlags.maxListings,
		})

		if err := runner.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				zap.L().Info("ingest interrupted, progress saved")
				return nil
			}
			return err
		}
		return nil
	},
}

var ingestTopoffPlatform string

var ingestTopoffCmd = &cobra.Command{
	Use:   "topoff",
	Short: "Fill underfilled category leaves via marketplace search",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("topoff"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tax, err := initTaxonomy()
		if err != nil {
			return err
		}
		images, err := initImages()
		if err != nil {
			return err
		}

		platform, ok := model.ParsePlatform(ingestTopoffPlatform)
		if !ok {
			return fmt.Errorf("unknown platform %q", ingestTopoffPlatform)
		}

		job := ingest.NewTopoff(tax, terms.New(), initSearchService(), st, images, ingest.TopoffConfig{
			TargetPerLeaf: cfg.Topoff.TargetPerLeaf,
			TermsPerLeaf:  cfg.Topoff.TermsPerLeaf,
			PerQueryLimit: cfg.Topoff.PerQueryLimit,
			QueryDelay:    time.Duration(cfg.Topoff.QueryDelaySecs) * time.Second,
			Platform:      platform,
		})

		if err := job.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				zap.L().Info("topoff interrupted")
				return nil
			}
			return err
		}
		return nil
	},
}

var ingestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint state and enrichment backlog",
	RunE: func(cmd *cobra.Command, args []string) error {
		progress, err := ingest.LoadProgress(cfg.Ingest.ProgressPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run:                  %s\n", progress.RunID)
		fmt.Fprintf(out, "offset:               %d\n", progress.Offset)
		fmt.Fprintf(out, "succeeded:            %d\n", progress.Succeeded)
		fmt.Fprintf(out, "partial:              %d\n", progress.Partial)
		fmt.Fprintf(out, "failed:               %d\n", progress.Failed)
		fmt.Fprintf(out, "consecutive failures: %d\n", progress.ConsecutiveFailures)

		if err := cfg.Validate("ingest"); err != nil {
			// Without a store the checkpoint alone is still useful.
			return nil
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		backlog, err := st.CountNeedingEnrichment(cmd.Context(), cfg.Ingest.MinAttrs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "backlog:              %d\n", backlog)
		return nil
	},
}

func init() {
	ingestRunCmd.Flags().IntVar(&ingestRunFlags.maxListings, "max", 0, "cap listings processed this run (0 = no cap)")
	ingestRunCmd.Flags().IntVar(&ingestRunFlags.batchSize, "batch-size", 0, "batch size (default from config)")
	ingestTopoffCmd.Flags().StringVar(&ingestTopoffPlatform, "platform", "all", "platform selector (all, alibaba, aliexpress)")
	ingestCmd.AddCommand(ingestRunCmd, ingestTopoffCmd, ingestStatusCmd)
	rootCmd.AddCommand(ingestCmd)
}
