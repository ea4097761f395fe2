package search

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcart/catalog-cli/internal/cache"
	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/normalize"
	"github.com/groupcart/catalog-cli/internal/provider"
)

type fakeFetcher struct {
	listings []model.ExternalListing
	err      error
	calls    atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, platform model.Platform, query string, limit int, opts provider.SearchOpts) ([]model.ExternalListing, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func sampleListings() []model.ExternalListing {
	return []model.ExternalListing{
		{Platform: model.PlatformAlibaba, URL: "https://a.com/1?x=1", Title: "Charlie lot", MOQText: "MOQ: 50"},
		{Platform: model.PlatformAlibaba, URL: "https://a.com/2", Title: "Alpha lot", MOQText: "MOQ: 100"},
		{Platform: model.PlatformAliexpress, URL: "https://b.com/3", Title: "Bravo lot", MOQText: "MOQ: 20"},
		{Platform: model.PlatformAliexpress, URL: "https://a.com/1?x=2", Title: "Duplicate of one", MOQText: "MOQ: 10"},
	}
}

func newService(f Fetcher) *Service {
	return New(f, normalize.Dedupe, cache.New[[]model.NormalizedListing](), Config{})
}

func TestSearch_PipelineDedupesFiltersSorts(t *testing.T) {
	f := &fakeFetcher{listings: sampleListings()}
	svc := newService(f)

	got, err := svc.Search(context.Background(), Params{Q: "lots"})
	require.NoError(t, err)

	require.Equal(t, 3, got.Total)
	assert.Equal(t, "Alpha lot", got.Items[0].Title)
	assert.Equal(t, "Bravo lot", got.Items[1].Title)
	assert.Equal(t, "Charlie lot", got.Items[2].Title)
	// Canonical URL of the first occurrence, query string stripped.
	assert.Equal(t, "https://a.com/1", got.Items[2].CanonicalURL)
}

func TestSearch_PaginationSharesOneFetch(t *testing.T) {
	f := &fakeFetcher{listings: sampleListings()}
	svc := newService(f)

	page1, err := svc.Search(context.Background(), Params{Q: "lots", Offset: 0, Limit: 2})
	require.NoError(t, err)
	page2, err := svc.Search(context.Background(), Params{Q: "lots", Offset: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.calls.Load(), "second page must be a cache hit")
	assert.Equal(t, 3, page1.Total)
	assert.Equal(t, 3, page2.Total)
	require.Len(t, page1.Items, 2)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, "Charlie lot", page2.Items[0].Title)
}

func TestSearch_NoCacheBypassesReadAndWrite(t *testing.T) {
	f := &fakeFetcher{listings: sampleListings()}
	svc := newService(f)

	_, err := svc.Search(context.Background(), Params{Q: "lots", NoCache: true})
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), Params{Q: "lots", NoCache: true})
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.calls.Load())
}

func TestSearch_DifferentBoundsDifferentCacheEntries(t *testing.T) {
	f := &fakeFetcher{listings: sampleListings()}
	svc := newService(f)

	_, err := svc.Search(context.Background(), Params{Q: "lots"})
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), Params{Q: "lots", MinMOQ: 60})
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.calls.Load())
}

func TestSearch_CacheExpiry(t *testing.T) {
	now := time.Now()
	c := cache.New[[]model.NormalizedListing]().WithNow(func() time.Time { return now })
	f := &fakeFetcher{listings: sampleListings()}
	svc := New(f, normalize.Dedupe, c, Config{CacheTTL: 5 * time.Minute})

	_, err := svc.Search(context.Background(), Params{Q: "lots"})
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	_, err = svc.Search(context.Background(), Params{Q: "lots"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.calls.Load())
}

func TestSearch_AllProvidersDownIsEmptyResult(t *testing.T) {
	// The orchestrator already swallows provider failures; an empty fetch
	// must surface as an empty result set, not an error.
	f := &fakeFetcher{listings: nil}
	svc := newService(f)

	got, err := svc.Search(context.Background(), Params{Q: "lots"})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
}

func TestSearch_UnsupportedPlatformPropagates(t *testing.T) {
	f := &fakeFetcher{err: provider.ErrUnsupportedPlatform}
	svc := newService(f)

	_, err := svc.Search(context.Background(), Params{Q: "lots", Platform: "ebay"})
	assert.ErrorIs(t, err, provider.ErrUnsupportedPlatform)
}

func TestSearch_DebugMeta(t *testing.T) {
	f := &fakeFetcher{listings: sampleListings()}
	svc := newService(f)

	got, err := svc.Search(context.Background(), Params{Q: "lots", Debug: true})
	require.NoError(t, err)
	require.NotNil(t, got.Meta)
	assert.Equal(t, "miss", got.Meta["cache"])

	got, err = svc.Search(context.Background(), Params{Q: "lots", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "hit", got.Meta["cache"])
}

func TestCacheKey_IgnoresPagination(t *testing.T) {
	a := CacheKey(Params{Q: "socks", Offset: 0, Limit: 10})
	b := CacheKey(Params{Q: "socks", Offset: 50, Limit: 5, Debug: true, NoCache: true})
	assert.Equal(t, a, b)

	c := CacheKey(Params{Q: "socks", MinPrice: 2})
	assert.NotEqual(t, a, c)
}
