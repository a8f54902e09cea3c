// Package sheets reads stock-receiving sheets and writes stock reports in xlsx.
package sheets

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

var ErrEmptySheet = errors.New("sheets: file is empty or missing header row")

// ImportHeader is the expected first row of an import sheet.
var ImportHeader = []string{"product", "quantity", "unit_price", "source", "note"}

// ImportRow is one data row. Row is the 1-based spreadsheet row number; Err is
// set when the row could not be parsed.
type ImportRow struct {
	Row       int
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
	Source    string
	Note      string
	Err       error
}

// ParseImportRows reads the first sheet. Blank rows are skipped.
func ParseImportRows(r io.ReaderAt, size int64) ([]ImportRow, error) {
	f, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("sheets: open: %w", err)
	}
	if len(f.Sheets) == 0 || f.Sheets[0].MaxRow < 2 {
		return nil, ErrEmptySheet
	}

	sheet := f.Sheets[0]
	var out []ImportRow
	for i := 1; i < sheet.MaxRow && i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		if row == nil {
			continue
		}
		get := func(idx int) string {
			if idx < len(row.Cells) && row.Cells[idx] != nil {
				return strings.TrimSpace(row.Cells[idx].String())
			}
			return ""
		}
		if get(0) == "" && get(1) == "" && get(2) == "" {
			continue
		}
		out = append(out, parseRow(i+1, get))
	}
	return out, nil
}

func parseRow(n int, get func(int) string) ImportRow {
	row := ImportRow{Row: n, Product: get(0), Source: get(3), Note: get(4)}
	if row.Product == "" {
		row.Err = errors.New("product is required")
		return row
	}
	qty, err := strconv.ParseFloat(get(1), 64)
	if err != nil || qty != float64(int(qty)) {
		row.Err = fmt.Errorf("quantity %q is not a whole number", get(1))
		return row
	}
	row.Quantity = int(qty)

	price := get(2)
	if price == "" {
		price = "0"
	}
	row.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		row.Err = fmt.Errorf("unit_price %q is not a number", get(2))
	}
	return row
}

type StockRow struct {
	Name     string
	Slug     string
	Category string
	Price    decimal.Decimal
	Stock    int
}

var stockHeader = []string{"Name", "Slug", "Category", "Price", "Stock"}

// WriteStock renders a one-sheet stock report.
func WriteStock(w io.Writer, rows []StockRow) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Stock")
	if err != nil {
		return fmt.Errorf("sheets: add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range stockHeader {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Slug)
		row.AddCell().SetString(r.Category)
		row.AddCell().SetFloat(r.Price.InexactFloat64())
		row.AddCell().SetInt(r.Stock)
	}
	return file.Write(w)
}

// WriteImportTemplate writes an empty import sheet with only the header row.
func WriteImportTemplate(w io.Writer) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Imports")
	if err != nil {
		return fmt.Errorf("sheets: add sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, h := range ImportHeader {
		header.AddCell().SetString(h)
	}
	return file.Write(w)
}
