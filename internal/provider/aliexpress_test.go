package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcart/catalog-cli/internal/model"
)

const aliexpressFixture = `<html><body>
<div class="search-item-card">
  <a href="/item/1005001.html"><h3>Winter wool socks 10 pairs lot</h3></a>
  <img src="https://img.example.com/1.jpg"/>
  <span class="price-current">US $8.99</span>
  <span class="moq">10 pairs</span>
  <span class="store-name">WarmFeet Store</span>
  <span class="sold-count">1,024 sold</span>
</div>
<div class="search-item-card">
  <a href="https://www.aliexpress.com/item/1005002.html"><h3>Thermal socks set</h3></a>
  <span class="price-current">US $12.50</span>
</div>
<div class="search-item-card">
  <a href="/item/no-title.html"></a>
</div>
</body></html>`

func TestAliexpress_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wholesale", r.URL.Path)
		assert.Equal(t, "wool socks", r.URL.Query().Get("SearchText"))
		w.Write([]byte(aliexpressFixture))
	}))
	defer srv.Close()

	p := NewAliexpress(WithAliexpressBaseURL(srv.URL))
	got, err := p.Search(context.Background(), "wool socks", 20, SearchOpts{})
	require.NoError(t, err)

	require.Len(t, got, 2) // untitled card skipped
	assert.Equal(t, model.PlatformAliexpress, got[0].Platform)
	assert.Equal(t, srv.URL+"/item/1005001.html", got[0].URL)
	assert.Equal(t, "Winter wool socks 10 pairs lot", got[0].Title)
	assert.Equal(t, "US $8.99", got[0].PriceText)
	assert.Equal(t, "10 pairs", got[0].MOQText)
	assert.Equal(t, "WarmFeet Store", got[0].StoreName)
	assert.Equal(t, 1024, got[0].Orders)
	assert.Equal(t, "https://www.aliexpress.com/item/1005002.html", got[1].URL)
}

func TestAliexpress_LimitStopsParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(aliexpressFixture))
	}))
	defer srv.Close()

	p := NewAliexpress(WithAliexpressBaseURL(srv.URL))
	got, err := p.Search(context.Background(), "socks", 1, SearchOpts{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAliexpress_HeadlessUsesRenderProxy(t *testing.T) {
	var renderHit bool
	render := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderHit = true
		assert.Equal(t, "/render", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("url"))
		w.Write([]byte(aliexpressFixture))
	}))
	defer render.Close()

	p := NewAliexpress(
		WithAliexpressBaseURL("https://unreachable.invalid"),
		WithAliexpressRenderURL(render.URL),
	)
	got, err := p.Search(context.Background(), "socks", 5, SearchOpts{Headless: true})
	require.NoError(t, err)
	assert.True(t, renderHit)
	assert.Len(t, got, 2)
}

func TestAliexpress_LoginWallIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Please sign in to continue</body></html>`))
	}))
	defer srv.Close()

	p := NewAliexpress(WithAliexpressBaseURL(srv.URL))
	_, err := p.Search(context.Background(), "socks", 5, SearchOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback page")
}

func TestParseLeadingInt(t *testing.T) {
	assert.Equal(t, 1024, parseLeadingInt("1,024 sold"))
	assert.Equal(t, 7, parseLeadingInt("7 orders"))
	assert.Equal(t, 0, parseLeadingInt("sold out"))
}
