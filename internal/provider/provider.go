// Package provider wraps each upstream marketplace behind a uniform search
// contract. Adapters own that source's scraping and parsing quirks; from
// the orchestrator's point of view they are interchangeable.
package provider

import (
	"context"

	"github.com/groupcart/catalog-cli/internal/model"
)

// SearchOpts carries per-request adapter options.
type SearchOpts struct {
	// Headless asks the adapter to use its slower browser-grade fetch path
	// when it has one. Adapters without one ignore it.
	Headless bool
}

// Provider fetches listings for a search query from one upstream source.
// Adapters return errors for their own failures; failure isolation (an
// unhealthy source never sinking the whole request) is the orchestrator's
// job.
type Provider interface {
	Search(ctx context.Context, query string, limit int, opts SearchOpts) ([]model.ExternalListing, error)
	Name() string
	Platform() model.Platform
}
