package provider

import (
	"net/http"
	"strings"
)

// FallbackKind describes the flavor of blocked/generic page an upstream
// served instead of real product data.
type FallbackKind string

const (
	FallbackNone      FallbackKind = ""
	FallbackCaptcha   FallbackKind = "captcha"
	FallbackPunish    FallbackKind = "punish"
	FallbackLoginWall FallbackKind = "login_wall"
	FallbackJSShell   FallbackKind = "js_shell"
	FallbackEdgeBlock FallbackKind = "edge_block"
)

// DetectFallback checks a marketplace response for anti-bot fallback pages.
// A fallback is not an HTTP error: the upstream returns 200 with a captcha,
// slider challenge, or login wall where the search results should be. The
// ingestion runner treats a streak of these as an IP-level block.
func DetectFallback(resp *http.Response, body []byte) (bool, FallbackKind) {
	if resp == nil {
		return false, FallbackNone
	}

	// CDN/edge blocks: 403/503 from cloudflare or akamai frontends.
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" ||
			resp.Header.Get("server") == cloudflareServer ||
			resp.Header.Get("server") == "AkamaiGHost" {
			return true, FallbackEdgeBlock
		}
	}

	lower := strings.ToLower(string(body))

	// Alibaba-family punish/slider pages.
	if strings.Contains(lower, "punish") && strings.Contains(lower, "verify") ||
		strings.Contains(lower, "x5sec") ||
		strings.Contains(lower, "slide to verify") ||
		strings.Contains(lower, "nc_1_n1z") {
		return true, FallbackPunish
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "verify you are human") ||
		strings.Contains(lower, "unusual traffic") {
		return true, FallbackCaptcha
	}

	// Search pages that bounce to a login form carry no listings.
	if strings.Contains(lower, "please sign in") ||
		strings.Contains(lower, "login-required") {
		return true, FallbackLoginWall
	}

	// Near-empty JS shell instead of rendered results.
	if len(body) > 0 && len(body) < 2048 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, FallbackJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, FallbackJSShell
		}
	}

	return false, FallbackNone
}

const cloudflareServer = "cloudflare"
