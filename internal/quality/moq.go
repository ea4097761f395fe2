package quality

import (
	"regexp"
	"strconv"
)

// MOQ extraction rules, tried in order. The first rule that matches wins;
// later rules are never attempted.
var (
	// Explicit English markers: "MOQ: 500", "Min Order 100", "≥ 50".
	moqMarkerRe = regexp.MustCompile(`(?i)(?:moq|min\.?\s*order|minimum\s*order|≥)\s*[:：]?\s*([0-9]{1,9})`)

	// Chinese markers: 起订量/最小起订量/最低起订量/起订.
	moqChineseRe = regexp.MustCompile(`(?:最小起订量|最低起订量|起订量|起订)\s*[:：]?\s*([0-9]{1,9})`)

	// Bare leading count immediately followed by a unit word. Only applied
	// to currency-free text so prices never read as quantities.
	moqBareCountRe = regexp.MustCompile(`(?i)^\s*([0-9]{1,9})\s*(?:pcs|pieces|pairs|sets|units|bags|lots)\b`)

	// Retail phrasing like "$5 for 1 item", a per-lot unit count buried in
	// price text. Catches single-unit retail listings that carry no MOQ
	// marker at all.
	moqForCountRe = regexp.MustCompile(`(?i)\bfor\s+([0-9]{1,9})\s+(?:items?|pcs?|pieces?|units?)\b`)
)

// ParseMOQ extracts a minimum order quantity from free text. Rules are
// tried in a fixed order: explicit English markers, Chinese markers, a bare
// leading count with a unit word (currency-free text only), then retail
// "for N item" phrasing. Returns nil when nothing matches.
func ParseMOQ(text string) *int {
	if m := moqMarkerRe.FindStringSubmatch(text); m != nil {
		return atoiRef(m[1])
	}
	if m := moqChineseRe.FindStringSubmatch(text); m != nil {
		return atoiRef(m[1])
	}
	if !hasCurrencyMarker(text) {
		if m := moqBareCountRe.FindStringSubmatch(text); m != nil {
			return atoiRef(m[1])
		}
	}
	if m := moqForCountRe.FindStringSubmatch(text); m != nil {
		return atoiRef(m[1])
	}
	return nil
}

func atoiRef(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
