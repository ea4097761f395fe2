// Package quality extracts price and MOQ signals from listing free text and
// drops listings that fail the catalog's wholesale quality rules. All
// functions here are pure; no I/O.
package quality

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// priceRe matches an optional currency marker followed by a 1-6 digit
// number with an optional 1-2 decimal fraction.
var priceRe = regexp.MustCompile(`(?i)(?:US\s?\$|USD|RMB|CNY|¥|￥|\$)?\s*([0-9]{1,6}(?:\.[0-9]{1,2})?)`)

// currencyRe reports whether text carries any currency marker at all.
var currencyRe = regexp.MustCompile(`(?i)US\s?\$|USD|RMB|CNY|¥|￥|\$`)

// ParsePrice extracts the first price-looking number from text. Returns nil
// when no match is found or the number is not finite.
func ParsePrice(text string) *float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// hasCurrencyMarker reports whether text contains a currency symbol. The
// bare count MOQ rule only applies to currency-free text, so "100pcs" reads
// as a quantity but "$100" never does.
func hasCurrencyMarker(text string) bool {
	return currencyRe.MatchString(text)
}

func containsAnyFold(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
