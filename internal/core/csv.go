package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// ExportColumns is the fixed header of the CSV export.
var ExportColumns = []string{"id", "title", "price", "category", "images"}

// ImageSeparator joins image URLs inside the images column.
const ImageSeparator = "|"

// ToCSV serializes products, in order, as comma-delimited text with LF line
// endings. Fields containing a comma, quote, CR or LF are quoted with inner
// quotes doubled. CRLF inside a field is written as LF, since CSV readers
// fold it to LF anyway; with that, encoding/csv reads back the exact values.
func ToCSV(items []Product) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ExportColumns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range items {
		if err := w.Write(ExportRecord(p)); err != nil {
			return "", fmt.Errorf("write csv row %d: %w", p.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// ExportRecord returns the CSV fields for one product, matching ExportColumns.
func ExportRecord(p Product) []string {
	return []string{
		strconv.Itoa(p.ID),
		exportText(p.Title),
		p.Price.String(),
		exportText(p.CategoryName()),
		exportText(strings.Join(p.Images, ImageSeparator)),
	}
}

// exportText drops every CR directly before an LF, so the field holds no
// CRLF for a reader to fold. A CR not followed by LF is kept.
func exportText(s string) string {
	for strings.Contains(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	return s
}

// ExportFilename names the export after the page it was taken from.
func ExportFilename(page, pageSize int) string {
	return fmt.Sprintf("products_page%d_size%d.csv", page, pageSize)
}
