// Package store persists the quality-controlled listing catalog. The
// pipeline only upserts and queries; deletion is an external concern.
package store

import (
	"context"
	"time"

	"github.com/groupcart/catalog-cli/internal/model"
)

// Filter narrows count and list queries. Zero values match everything.
type Filter struct {
	Platform model.Platform
	Category string
}

// ListingRef identifies a stored listing for the enrichment runner.
type ListingRef struct {
	ID           string
	Platform     model.Platform
	CanonicalURL string
	CreatedAt    time.Time
}

// Store is the catalog persistence interface. Listings are keyed by
// (platform, canonical URL); upserting an existing key updates it in
// place.
type Store interface {
	// UpsertListings writes records, returning how many rows were written.
	UpsertListings(ctx context.Context, records []model.SavedListingRecord) (int, error)
	// CountListings counts records matching the filter, for coverage
	// accounting.
	CountListings(ctx context.Context, f Filter) (int, error)
	// ListListings pages through matching records, newest first.
	ListListings(ctx context.Context, f Filter, limit, offset int) ([]model.SavedListingRecord, error)

	// CountNeedingEnrichment counts records with fewer than minAttrs
	// extracted attributes.
	CountNeedingEnrichment(ctx context.Context, minAttrs int) (int, error)
	// ListNeedingEnrichment pages through attribute-poor records ordered
	// by creation time descending.
	ListNeedingEnrichment(ctx context.Context, minAttrs, limit, offset int) ([]ListingRef, error)
	// SetAttributeCount records the enrichment outcome for a listing.
	SetAttributeCount(ctx context.Context, id string, attrs int) error

	// Migrate creates the schema if needed.
	Migrate(ctx context.Context) error
	Close() error
}
