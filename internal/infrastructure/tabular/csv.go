package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"backoffice/internal/core/apperror"
	"backoffice/internal/domain/opname"
)

func encodeCSV(w io.Writer, rows iter.Seq2[opname.Row, error]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(opname.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for row, err := range rows {
		if err != nil {
			return err
		}
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperror.NewValidation("malformed CSV: " + err.Error())
	}
	return records, nil
}
