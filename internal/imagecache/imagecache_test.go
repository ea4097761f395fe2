package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCacher_DownloadsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("fake-png-bytes"))
	}))
	defer srv.Close()

	c, err := NewDiskCacher(t.TempDir())
	require.NoError(t, err)

	first, err := c.Cache(context.Background(), srv.URL+"/img/thumb.png")
	require.NoError(t, err)
	assert.FileExists(t, first)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "fake-png-bytes", string(data))

	second, err := c.Cache(context.Background(), srv.URL+"/img/thumb.png")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should hit the cache")
}

func TestDiskCacher_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewDiskCacher(t.TempDir())
	require.NoError(t, err)

	_, err = c.Cache(context.Background(), srv.URL+"/gone.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestDiskCacher_EmptyURL(t *testing.T) {
	t.Parallel()

	c, err := NewDiskCacher(t.TempDir())
	require.NoError(t, err)

	got, err := c.Cache(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".png", ext("https://cdn.example.com/a/b/thumb.png?x-oss-process=resize"))
	assert.Equal(t, ".jpg", ext("https://cdn.example.com/thumb.jpg"))
	assert.Equal(t, ".img", ext("https://cdn.example.com/thumb"))
}
