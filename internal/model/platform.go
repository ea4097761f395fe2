package model

import "strings"

// Platform identifies an upstream marketplace source.
type Platform string

const (
	// PlatformAll selects every registered provider.
	PlatformAll Platform = "all"

	PlatformAlibaba    Platform = "alibaba"
	PlatformAliexpress Platform = "aliexpress"
)

// ParsePlatform normalizes a platform selector string. An empty selector
// defaults to PlatformAll. Returns false for unknown selectors.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlatformAll:
		return PlatformAll, true
	case PlatformAlibaba:
		return PlatformAlibaba, true
	case PlatformAliexpress:
		return PlatformAliexpress, true
	default:
		return "", false
	}
}

func (p Platform) String() string {
	return string(p)
}
