package quality

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/groupcart/catalog-cli/internal/model"
)

// Bounds are the caller-supplied numeric filters for an aggregate query.
// Zero values mean "not supplied".
type Bounds struct {
	MinPrice float64
	MaxPrice float64
	MinMOQ   int
	MaxMOQ   int
}

// HardMOQFloor is the minimum order quantity always enforced regardless of
// caller bounds. Single-unit retail listings have no place in a
// wholesale-pooling catalog.
const HardMOQFloor = 2

// bannedKeywords mark service or custom-only offerings that are not real
// product listings.
var bannedKeywords = []string{
	"custom order link",
	"customized link",
	"customization service",
	"oem service",
	"odm service",
	"design service",
	"printing service",
	"repair service",
	"logo service",
	"sample link",
	"extra fee",
	"shipping fee link",
	"freight link",
	"payment link",
	"vip link",
	"dropshipping service",
}

var lowerCaser = cases.Lower(language.Und)

// Filter annotates listings with parsed price/MOQ, drops banned and
// under-floor entries, applies caller bounds, and returns the survivors in
// a deterministic order: stable sort by lowercased title, ties broken by
// raw URL. Running it twice on the same input yields identical output.
func Filter(listings []model.NormalizedListing, b Bounds) []model.NormalizedListing {
	floor := HardMOQFloor
	if b.MinMOQ > floor {
		floor = b.MinMOQ
	}

	kept := make([]model.NormalizedListing, 0, len(listings))
	for _, l := range listings {
		if containsAnyFold(l.Title+" "+l.Description, bannedKeywords) {
			continue
		}

		l.ParsedPrice = ParsePrice(l.PriceText)

		// Explicit MOQ first, then a parse over the combined free text.
		moq := ParseMOQ(l.MOQText)
		if moq == nil {
			moq = ParseMOQ(l.PriceText + " " + l.Title + " " + l.Description)
		}
		l.ParsedMOQ = moq

		if moq != nil && *moq < floor {
			continue
		}
		if !withinBounds(l, b) {
			continue
		}
		kept = append(kept, l)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ti := lowerCaser.String(kept[i].Title)
		tj := lowerCaser.String(kept[j].Title)
		if ti != tj {
			return ti < tj
		}
		return kept[i].URL < kept[j].URL
	})
	return kept
}

// withinBounds checks supplied numeric ranges against parsed values. A
// listing with no parsed value cannot fail a bound.
func withinBounds(l model.NormalizedListing, b Bounds) bool {
	if l.ParsedPrice != nil {
		if b.MinPrice > 0 && *l.ParsedPrice < b.MinPrice {
			return false
		}
		if b.MaxPrice > 0 && *l.ParsedPrice > b.MaxPrice {
			return false
		}
	}
	if l.ParsedMOQ != nil && b.MaxMOQ > 0 && *l.ParsedMOQ > b.MaxMOQ {
		return false
	}
	return true
}
