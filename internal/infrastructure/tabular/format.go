// Package tabular converts opname rows to and from CSV and XLSX files.
package tabular

import (
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strconv"
	"strings"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/opname"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("unsupported format %q", s)).
		WithDetail("allowed", []Format{FormatCSV, FormatXLSX})
}

// FormatFromFilename picks the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ContentType is the MIME type for HTTP responses.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Encode writes a header row and then every row of the sequence.
// It stops at the first error yielded by rows.
func Encode(w io.Writer, f Format, rows iter.Seq2[opname.Row, error]) error {
	switch f {
	case FormatCSV:
		return encodeCSV(w, rows)
	case FormatXLSX:
		return encodeXLSX(w, rows)
	}
	return fmt.Errorf("unsupported format %q", f)
}

// Decode reads an import file. The header row is required; columns are
// matched by name so their order does not matter. Lines whose cells cannot be
// parsed carry a validation error in ImportLine.Err.
func Decode(r io.Reader, f Format) ([]opname.ImportLine, error) {
	var (
		records [][]string
		err     error
	)
	switch f {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return decodeRecords(records)
}

func record(row opname.Row) []string {
	return []string{
		row.ProductSKU,
		row.ProductName,
		strconv.FormatInt(row.SystemQuantity, 10),
		strconv.FormatInt(row.CountedQuantity, 10),
		strconv.FormatInt(row.Difference, 10),
		row.Notes,
	}
}

func decodeRecords(records [][]string) ([]opname.ImportLine, error) {
	if len(records) == 0 {
		return nil, apperror.NewValidation("file is empty")
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}
	for _, required := range []string{"product_sku", "counted_quantity"} {
		if _, ok := index[required]; !ok {
			return nil, apperror.NewValidation("missing column " + required).
				WithDetail("columns", opname.Columns)
		}
	}

	cell := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	lines := make([]opname.ImportLine, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		line := opname.ImportLine{
			Line: i + 2, // the header is line 1
			Row: opname.Row{
				ProductSKU:  cell(rec, "product_sku"),
				ProductName: cell(rec, "product_name"),
				Notes:       cell(rec, "notes"),
			},
		}
		qty, err := types.ParseCount(cell(rec, "counted_quantity"))
		if err != nil {
			line.Err = apperror.NewValidation("counted_quantity: " + err.Error()).
				WithDetail("field", "counted_quantity")
		}
		line.Row.CountedQuantity = qty
		lines = append(lines, line)
	}
	return lines, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
