// Package export writes catalog listings to spreadsheet files for
// sourcing review.
package export

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/groupcart/catalog-cli/internal/store"
)

// pageSize bounds one store read per sheet chunk.
const pageSize = 500

var header = []string{
	"Platform", "Title", "Price", "Parsed Price", "MOQ", "Parsed MOQ",
	"Store", "Rating", "Orders", "Categories", "URL",
}

// XLSX writes listings matching the filter into an xlsx workbook at path.
// Returns how many rows were written.
func XLSX(ctx context.Context, st store.Store, filter store.Filter, limit int, path string) (int, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Listings")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}

	written := 0
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		size := pageSize
		if limit > 0 && limit-written < size {
			size = limit - written
		}
		if size <= 0 {
			break
		}

		records, err := st.ListListings(ctx, filter, size, offset)
		if err != nil {
			return written, eris.Wrap(err, "export: list listings")
		}
		if len(records) == 0 {
			break
		}

		for _, r := range records {
			row := sheet.AddRow()
			row.AddCell().SetString(r.Platform.String())
			row.AddCell().SetString(r.Title)
			row.AddCell().SetString(r.PriceText)
			if r.ParsedPrice != nil {
				row.AddCell().SetFloat(*r.ParsedPrice)
			} else {
				row.AddCell().SetString("")
			}
			row.AddCell().SetString(r.MOQText)
			if r.ParsedMOQ != nil {
				row.AddCell().SetInt(*r.ParsedMOQ)
			} else {
				row.AddCell().SetString("")
			}
			row.AddCell().SetString(r.StoreName)
			row.AddCell().SetFloat(r.Rating)
			row.AddCell().SetInt(r.Orders)
			row.AddCell().SetString(strings.Join(r.Categories, ", "))
			row.AddCell().SetString(r.CanonicalURL)
			written++
		}
	}

	if err := f.Save(path); err != nil {
		return written, eris.Wrapf(err, "export: save %s", path)
	}
	return written, nil
}
