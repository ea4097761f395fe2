package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/resilience"
)

const defaultAlibabaBaseURL = "https://m.alibaba.com"

// alibabaProvider queries Alibaba's mobile search JSON endpoint.
type alibabaProvider struct {
	baseURL string
	http    *http.Client
}

// AlibabaOption configures the Alibaba adapter.
type AlibabaOption func(*alibabaProvider)

// WithAlibabaBaseURL overrides the endpoint base URL (for testing).
func WithAlibabaBaseURL(u string) AlibabaOption {
	return func(p *alibabaProvider) {
		p.baseURL = u
	}
}

// WithAlibabaHTTPClient sets a custom HTTP client.
func WithAlibabaHTTPClient(hc *http.Client) AlibabaOption {
	return func(p *alibabaProvider) {
		p.http = hc
	}
}

// NewAlibaba creates the Alibaba search adapter.
func NewAlibaba(opts ...AlibabaOption) Provider {
	p := &alibabaProvider{
		baseURL: defaultAlibabaBaseURL,
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

func (p *alibabaProvider) Name() string { return "alibaba" }

func (p *alibabaProvider) Platform() model.Platform { return model.PlatformAlibaba }

// alibabaSearchResponse mirrors the subset of the mobile search payload we
// consume.
type alibabaSearchResponse struct {
	Data struct {
		Offers []struct {
			Subject       string  `json:"subject"`
			ProductURL    string  `json:"productUrl"`
			ImageURL      string  `json:"imageUrl"`
			PriceText     string  `json:"price"`
			MinOrderText  string  `json:"minOrder"`
			CompanyName   string  `json:"companyName"`
			Description   string  `json:"description"`
			SupplierScore float64 `json:"supplierScore"`
			TradeCount    int     `json:"tradeCount"`
		} `json:"offers"`
	} `json:"data"`
}

func (p *alibabaProvider) Search(ctx context.Context, query string, limit int, opts SearchOpts) ([]model.ExternalListing, error) {
	if limit <= 0 {
		limit = 20
	}

	endpoint := fmt.Sprintf("%s/search/api?q=%s&pageSize=%d",
		p.baseURL, url.QueryEscape(query), limit)

	body, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]byte, error) {
		return p.get(ctx, endpoint)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "alibaba: search %q", query)
	}

	var parsed alibabaSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrapf(err, "alibaba: decode search %q", query)
	}

	listings := make([]model.ExternalListing, 0, len(parsed.Data.Offers))
	for _, o := range parsed.Data.Offers {
		if o.ProductURL == "" || o.Subject == "" {
			continue
		}
		listings = append(listings, model.ExternalListing{
			Platform:    model.PlatformAlibaba,
			URL:         absoluteURL(p.baseURL, o.ProductURL),
			Title:       o.Subject,
			Image:       o.ImageURL,
			PriceText:   o.PriceText,
			MOQText:     o.MinOrderText,
			StoreName:   o.CompanyName,
			Description: o.Description,
			Rating:      o.SupplierScore,
			Orders:      o.TradeCount,
		})
		if len(listings) >= limit {
			break
		}
	}

	zap.L().Debug("alibaba: search complete",
		zap.String("query", query),
		zap.Int("listings", len(listings)),
	)
	return listings, nil
}

// get performs one GET, surfacing rate-limit and fallback pages as errors
// so the retry layer and the orchestrator can react.
func (p *alibabaProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "alibaba: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", mobileUserAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "alibaba: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "alibaba: read body")
	}

	if blocked, kind := DetectFallback(resp, body); blocked {
		return nil, eris.Errorf("alibaba: fallback page served (%s)", kind)
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("alibaba: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("alibaba: status %d", resp.StatusCode)
	}
	return body, nil
}

const (
	mobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	maxResponseBytes = 4 << 20
)

// absoluteURL resolves scheme-relative and path-relative product URLs.
func absoluteURL(base, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.IsAbs() {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return b.ResolveReference(u).String()
}
