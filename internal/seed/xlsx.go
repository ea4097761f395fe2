// Package seed loads listings from spreadsheet files into the catalog.
// Sourcing teams hand over candidate listings as xlsx exports; seeding
// runs them through the same normalization and parsing as live search
// results before they are stored.
package seed

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/groupcart/catalog-cli/internal/model"
	"github.com/groupcart/catalog-cli/internal/normalize"
	"github.com/groupcart/catalog-cli/internal/quality"
)

// XLSXOptions configures the spreadsheet parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	// Category is attached to every imported listing.
	Category string
}

// Expected column order. The header row is detected and skipped when its
// first cell is not a known platform.
const (
	colPlatform = iota
	colURL
	colTitle
	colPriceText
	colMOQText
	colStoreName
	minColumns = colStoreName + 1
)

// ReadXLSX parses listing rows from an xlsx file. Rows with an unknown
// platform or an empty URL are skipped; the parsed records carry canonical
// URLs and parsed price/MOQ values.
func ReadXLSX(path string, opts XLSXOptions) ([]model.SavedListingRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var records []model.SavedListingRecord
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if len(cells) < minColumns {
			continue
		}

		platform, ok := model.ParsePlatform(cells[colPlatform])
		if !ok || platform == model.PlatformAll {
			// Header rows and blank platform cells land here.
			continue
		}
		if cells[colURL] == "" {
			continue
		}

		raw := model.ExternalListing{
			Platform:  platform,
			URL:       cells[colURL],
			Title:     cells[colTitle],
			PriceText: cells[colPriceText],
			MOQText:   cells[colMOQText],
			StoreName: cells[colStoreName],
		}

		listing := model.NormalizedListing{
			ExternalListing: raw,
			CanonicalURL:    normalize.NormalizeURL(raw.URL),
			ParsedPrice:     quality.ParsePrice(raw.PriceText),
			ParsedMOQ:       quality.ParseMOQ(raw.MOQText),
		}

		record := model.SavedListingRecord{NormalizedListing: listing}
		if opts.Category != "" {
			record.Categories = []string{opts.Category}
		}
		records = append(records, record)
	}

	return records, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("seed: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("seed: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
