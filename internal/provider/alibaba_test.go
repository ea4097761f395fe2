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

const alibabaFixture = `{
  "data": {
    "offers": [
      {
        "subject": "Wool socks wholesale",
        "productUrl": "/product/12345.html",
        "imageUrl": "https://img.example.com/12345.jpg",
        "price": "US$ 0.80 - 1.20",
        "minOrder": "500 pairs",
        "companyName": "Zhuji Hosiery Co.",
        "supplierScore": 4.6,
        "tradeCount": 1200
      },
      {
        "subject": "",
        "productUrl": "/product/ignored.html"
      },
      {
        "subject": "Thermal socks",
        "productUrl": "https://m.alibaba.com/product/67890.html",
        "price": "US$ 1.50",
        "minOrder": "MOQ: 300"
      }
    ]
  }
}`

func TestAlibaba_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/api", r.URL.Path)
		assert.Equal(t, "wool socks", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(alibabaFixture))
	}))
	defer srv.Close()

	p := NewAlibaba(WithAlibabaBaseURL(srv.URL))
	got, err := p.Search(context.Background(), "wool socks", 20, SearchOpts{})
	require.NoError(t, err)

	require.Len(t, got, 2) // the empty-subject offer is skipped
	assert.Equal(t, model.PlatformAlibaba, got[0].Platform)
	assert.Equal(t, srv.URL+"/product/12345.html", got[0].URL)
	assert.Equal(t, "Wool socks wholesale", got[0].Title)
	assert.Equal(t, "US$ 0.80 - 1.20", got[0].PriceText)
	assert.Equal(t, "500 pairs", got[0].MOQText)
	assert.Equal(t, "Zhuji Hosiery Co.", got[0].StoreName)
	assert.Equal(t, 1200, got[0].Orders)
	// Absolute URLs pass through untouched.
	assert.Equal(t, "https://m.alibaba.com/product/67890.html", got[1].URL)
}

func TestAlibaba_SearchLimitApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(alibabaFixture))
	}))
	defer srv.Close()

	p := NewAlibaba(WithAlibabaBaseURL(srv.URL))
	got, err := p.Search(context.Background(), "socks", 1, SearchOpts{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAlibaba_FallbackPageIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>Please slide to verify</body></html>`))
	}))
	defer srv.Close()

	p := NewAlibaba(WithAlibabaBaseURL(srv.URL))
	_, err := p.Search(context.Background(), "socks", 10, SearchOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback page")
}

func TestAlibaba_BadJSONIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"offers": [`))
	}))
	defer srv.Close()

	p := NewAlibaba(WithAlibabaBaseURL(srv.URL))
	_, err := p.Search(context.Background(), "socks", 10, SearchOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
