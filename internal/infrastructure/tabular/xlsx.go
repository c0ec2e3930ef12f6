package tabular

import (
	"fmt"
	"io"
	"iter"

	"github.com/xuri/excelize/v2"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain/opname"
)

const sheetName = "Opname"

func encodeXLSX(w io.Writer, rows iter.Seq2[opname.Row, error]) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(opname.Columns))
	for i, c := range opname.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	n := 2
	for row, err := range rows {
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		values := []any{
			row.ProductSKU,
			row.ProductName,
			row.SystemQuantity,
			row.CountedQuantity,
			row.Difference,
			row.Notes,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", n, err)
		}
		n++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// readXLSX returns the rows of the first sheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.NewValidation("unreadable XLSX file: " + err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperror.NewValidation("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperror.NewValidation("unreadable sheet: " + err.Error())
	}
	return rows, nil
}
