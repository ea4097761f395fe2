package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/resilience"
)

const defaultAliexpressBaseURL = "https://www.aliexpress.com"

// aliexpressProvider scrapes AliExpress search result pages.
type aliexpressProvider struct {
	baseURL   string
	renderURL string // optional headless render proxy
	http      *http.Client
}

// AliexpressOption configures the AliExpress adapter.
type AliexpressOption func(*aliexpressProvider)

// WithAliexpressBaseURL overrides the site base URL (for testing).
func WithAliexpressBaseURL(u string) AliexpressOption {
	return func(p *aliexpressProvider) {
		p.baseURL = u
	}
}

// WithAliexpressRenderURL sets a headless render proxy used when a caller
// asks for headless fetching. Empty disables the headless path.
func WithAliexpressRenderURL(u string) AliexpressOption {
	return func(p *aliexpressProvider) {
		p.renderURL = u
	}
}

// WithAliexpressHTTPClient sets a custom HTTP client.
func WithAliexpressHTTPClient(hc *http.Client) AliexpressOption {
	return func(p *aliexpressProvider) {
		p.http = hc
	}
}

// NewAliexpress creates the AliExpress search adapter.
func NewAliexpress(opts ...AliexpressOption) Provider {
	p := &aliexpressProvider{
		baseURL: defaultAliexpressBaseURL,
		http: &http.Client{
			Timeout: 25 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *aliexpressProvider) Name() string { return "aliexpress" }

func (p *aliexpressProvider) Platform() model.Platform { return model.PlatformAliexpress }

func (p *aliexpressProvider) Search(ctx context.Context, query string, limit int, opts SearchOpts) ([]model.ExternalListing, error) {
	if limit <= 0 {
		limit = 20
	}

	searchURL := fmt.Sprintf("%s/wholesale?SearchText=%s", p.baseURL, url.QueryEscape(query))
	if opts.Headless && p.renderURL != "" {
		searchURL = fmt.Sprintf("%s/render?url=%s", p.renderURL, url.QueryEscape(searchURL))
	}

	body, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
		return p.get(ctx, searchURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "aliexpress: search %q", query)
	}

	listings, err := p.parseSearchPage(body, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "aliexpress: parse search %q", query)
	}

	zap.L().Debug("aliexpress: search complete",
		zap.String("query", query),
		zap.Bool("headless", opts.Headless),
		zap.Int("listings", len(listings)),
	)
	return listings, nil
}

// parseSearchPage extracts listing cards from a search result document.
func (p *aliexpressProvider) parseSearchPage(body []byte, limit int) ([]model.ExternalListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "parse document")
	}

	var listings []model.ExternalListing
	doc.Find("div.search-item-card, a.search-card-item").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		href := card.AttrOr("href", "")
		if href == "" {
			href = card.Find("a").First().AttrOr("href", "")
		}
		title := strings.TrimSpace(card.Find("h3, .multi--titleText--nXeOvyr").First().Text())
		if href == "" || title == "" {
			return true
		}

		l := model.ExternalListing{
			Platform:  model.PlatformAliexpress,
			URL:       absoluteURL(p.baseURL, href),
			Title:     title,
			Image:     card.Find("img").First().AttrOr("src", ""),
			PriceText: strings.TrimSpace(card.Find(".multi--price-sale--U-S0jtj, .price-current").First().Text()),
			MOQText:   strings.TrimSpace(card.Find(".multi--moq--2lVZcEG, .moq").First().Text()),
			StoreName: strings.TrimSpace(card.Find(".multi--storeName--2sQSJKp, .store-name").First().Text()),
		}
		if sold := strings.TrimSpace(card.Find(".multi--trade--Ktbl2jB, .sold-count").First().Text()); sold != "" {
			l.Orders = parseLeadingInt(sold)
		}
		listings = append(listings, l)
		return len(listings) < limit
	})

	return listings, nil
}

func (p *aliexpressProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "aliexpress: build request")
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", mobileUserAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "aliexpress: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "aliexpress: read body")
	}

	if blocked, kind := DetectFallback(resp, body); blocked {
		return nil, eris.Errorf("aliexpress: fallback page served (%s)", kind)
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("aliexpress: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("aliexpress: status %d", resp.StatusCode)
	}
	return body, nil
}

// parseLeadingInt pulls the integer prefix out of strings like "1,024 sold".
func parseLeadingInt(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
