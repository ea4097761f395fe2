// Package imagecache mirrors listing thumbnails to local disk so exports
// and the API can serve them without re-hitting the marketplace CDNs.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cacher stores remote images locally and reports their local path.
type Cacher interface {
	// Cache downloads imageURL into the cache if it is not already present
	// and returns the local file path.
	Cache(ctx context.Context, imageURL string) (string, error)
}

// Noop skips caching entirely. Used when no cache directory is configured.
type Noop struct{}

func (Noop) Cache(_ context.Context, imageURL string) (string, error) {
	return "", nil
}

// DiskCacher downloads images into a flat directory, one file per source
// URL. Files are keyed by the URL hash so re-ingesting the same listing is
// a no-op.
type DiskCacher struct {
	dir  string
	http *http.Client
}

const maxImageBytes = 8 << 20

// NewDiskCacher creates the cache directory if needed.
func NewDiskCacher(dir string) (*DiskCacher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "imagecache: create %s", dir)
	}
	return &DiskCacher{
		dir:  dir,
		http: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (c *DiskCacher) Cache(ctx context.Context, imageURL string) (string, error) {
	if imageURL == "" {
		return "", nil
	}

	sum := sha256.Sum256([]byte(imageURL))
	name := hex.EncodeToString(sum[:8]) + ext(imageURL)
	dest := filepath.Join(c.dir, name)

	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "imagecache: create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "imagecache: fetch %s", imageURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("imagecache: fetch %s: status %d", imageURL, resp.StatusCode)
	}

	// Write through a temp file so a cancelled download never leaves a
	// truncated image under the final name.
	tmp, err := os.CreateTemp(c.dir, name+".tmp-*")
	if err != nil {
		return "", eris.Wrap(err, "imagecache: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		tmp.Close()
		return "", eris.Wrapf(err, "imagecache: download %s", imageURL)
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "imagecache: close temp file")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", eris.Wrap(err, "imagecache: rename temp file")
	}

	zap.L().Debug("cached image", zap.String("url", imageURL), zap.String("path", dest))
	return dest, nil
}

// ext keeps a recognizable image extension when the URL has one.
func ext(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ".img"
	}
	switch e := path.Ext(u.Path); e {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return e
	default:
		return ".img"
	}
}
