// Package normalize canonicalizes listing URLs and collapses duplicate
// products fetched through different queries.
package normalize

import (
	"net/url"

	"github.com/groupcart/catalog-cli/internal/model"
)

// NormalizeURL strips the query string and fragment from raw and returns
// the cleared URL. Malformed input is returned unchanged; this function
// never fails. It is idempotent.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Dedupe canonicalizes each listing's URL and keeps only the first
// occurrence per canonical URL, preserving input order. Order among kept
// items is reproducible but carries no meaning; final presentation order is
// decided by the quality filter's deterministic sort.
func Dedupe(listings []model.ExternalListing) []model.NormalizedListing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]model.NormalizedListing, 0, len(listings))

	for _, l := range listings {
		canonical := NormalizeURL(l.URL)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, model.NormalizedListing{
			ExternalListing: l,
			CanonicalURL:    canonical,
		})
	}
	return out
}
