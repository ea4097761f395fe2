package seed

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeFixture(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Listings")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "seed.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, [][]string{
		{"Platform", "URL", "Title", "Price", "MOQ", "Store"},
		{"alibaba", "https://www.alibaba.com/product-detail/kettle_1.html?spm=a27aq", "Steel Kettle", "US $4.20", "MOQ: 50 pcs", "KettleCo"},
		{"aliexpress", "https://www.aliexpress.com/item/99.html", "USB Hub", "US $12.50", "", "HubStore"},
		{"ebay", "https://ebay.com/itm/1", "Unknown platform", "", "", ""},
		{"alibaba", "", "Missing URL", "", "", ""},
	})

	records, err := ReadXLSX(path, XLSXOptions{Category: "kitchen"})
	require.NoError(t, err)
	require.Len(t, records, 2, "header, unknown platform and empty URL rows are skipped")

	first := records[0]
	assert.Equal(t, "https://www.alibaba.com/product-detail/kettle_1.html", first.CanonicalURL)
	assert.Equal(t, "Steel Kettle", first.Title)
	require.NotNil(t, first.ParsedPrice)
	assert.InDelta(t, 4.20, *first.ParsedPrice, 0.001)
	require.NotNil(t, first.ParsedMOQ)
	assert.Equal(t, 50, *first.ParsedMOQ)
	assert.Equal(t, []string{"kitchen"}, first.Categories)

	second := records[1]
	assert.Nil(t, second.ParsedMOQ)
	assert.Equal(t, "HubStore", second.StoreName)
}

func TestReadXLSX_MissingSheet(t *testing.T) {
	t.Parallel()

	path := writeFixture(t, nil)

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Nope" not found`)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
