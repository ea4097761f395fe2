package ingest

import (
	"github.com/groupcart/catalog-cli/pkg/rescrape"
)

// Outcome is the per-listing classification of one re-scrape attempt.
type Outcome int

const (
	// OutcomeGood means the extraction produced a rich attribute set.
	OutcomeGood Outcome = iota
	// OutcomePartial means some attributes were extracted, fewer than the
	// good threshold.
	OutcomePartial
	// OutcomeBad means the scrape reached real content but produced no
	// attributes.
	OutcomeBad
	// OutcomeFallback means the scraper hit a block page instead of
	// product content. These count toward the consecutive-block streak.
	OutcomeFallback
	// OutcomeError means the attempt failed outright.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGood:
		return "good"
	case OutcomePartial:
		return "partial"
	case OutcomeBad:
		return "bad"
	case OutcomeFallback:
		return "fallback"
	default:
		return "error"
	}
}

// goodAttrThreshold is the attribute count at which an extraction is
// considered complete.
const goodAttrThreshold = 10

// Classify maps a re-scrape response to an Outcome. A nil result with a
// nil error is treated as an error.
func Classify(res *rescrape.Result, err error) Outcome {
	if err != nil || res == nil {
		return OutcomeError
	}
	if res.Fallback != "" {
		return OutcomeFallback
	}
	switch {
	case res.Attributes >= goodAttrThreshold:
		return OutcomeGood
	case res.Attributes >= 1:
		return OutcomePartial
	default:
		return OutcomeBad
	}
}
