// Package model defines the shared domain types for the catalog pipeline.
package model

// ExternalListing is a raw product listing as returned by a provider
// adapter. It is ephemeral: listings are normalized and filtered before
// anything is persisted.
type ExternalListing struct {
	Platform    Platform `json:"platform"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Image       string   `json:"image,omitempty"`
	PriceText   string   `json:"price_text,omitempty"`
	MOQText     string   `json:"moq_text,omitempty"`
	StoreName   string   `json:"store_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Orders      int      `json:"orders,omitempty"`
}

// NormalizedListing is an ExternalListing with derived fields attached by
// the normalize and quality stages. Two listings with the same CanonicalURL
// are the same product; only the first seen is kept.
type NormalizedListing struct {
	ExternalListing

	CanonicalURL string   `json:"canonical_url"`
	ParsedPrice  *float64 `json:"parsed_price,omitempty"`
	ParsedMOQ    *int     `json:"parsed_moq,omitempty"`
}

// SavedListingRecord is the persisted form of a listing, extended with the
// category and term tags used for coverage accounting. Records are upserted
// keyed by (platform, canonical URL); this pipeline never deletes them.
type SavedListingRecord struct {
	NormalizedListing

	Categories []string `json:"categories"`
	Terms      []string `json:"terms"`
}

// CategoryLeaf is the most specific taxonomy node listings are tagged
// against. Read-only reference data supplied by the taxonomy provider.
type CategoryLeaf struct {
	Key     string   `json:"key" yaml:"key"`
	Label   string   `json:"label" yaml:"label"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}
