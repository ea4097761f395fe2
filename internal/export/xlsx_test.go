package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/store"
)

type pagedStore struct {
	store.Store
	records []model.SavedListingRecord
}

func (p *pagedStore) ListListings(_ context.Context, _ store.Filter, limit, offset int) ([]model.SavedListingRecord, error) {
	if offset >= len(p.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(p.records) {
		end = len(p.records)
	}
	return p.records[offset:end], nil
}

func listing(platform model.Platform, title string, price float64) model.SavedListingRecord {
	return model.SavedListingRecord{
		NormalizedListing: model.NormalizedListing{
			ExternalListing: model.ExternalListing{
				Platform:  platform,
				Title:     title,
				PriceText: "US $" + title,
				StoreName: "Store",
				Rating:    4.5,
				Orders:    10,
			},
			CanonicalURL: "https://example.com/" + title,
			ParsedPrice:  &price,
		},
		Categories: []string{"tools", "hand-tools"},
	}
}

func TestXLSX_WritesRows(t *testing.T) {
	t.Parallel()

	st := &pagedStore{records: []model.SavedListingRecord{
		listing(model.PlatformAlibaba, "widget", 12.5),
		listing(model.PlatformAliexpress, "gadget", 3.2),
	}}
	path := filepath.Join(t.TempDir(), "listings.xlsx")

	n, err := XLSX(context.Background(), st, store.Filter{}, 0, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3, "header plus two listings")
	assert.Equal(t, "Platform", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "alibaba", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "widget", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "tools, hand-tools", sheet.Rows[1].Cells[9].String())
	assert.Equal(t, "https://example.com/gadget", sheet.Rows[2].Cells[10].String())
}

func TestXLSX_LimitCapsRows(t *testing.T) {
	t.Parallel()

	st := &pagedStore{records: []model.SavedListingRecord{
		listing(model.PlatformAlibaba, "a", 1),
		listing(model.PlatformAlibaba, "b", 2),
		listing(model.PlatformAlibaba, "c", 3),
	}}
	path := filepath.Join(t.TempDir(), "capped.xlsx")

	n, err := XLSX(context.Background(), st, store.Filter{}, 2, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
