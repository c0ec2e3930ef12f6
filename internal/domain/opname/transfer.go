package opname

import (
	"context"
	"errors"
	"iter"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// Columns is the tabular layout shared by export and import.
var Columns = []string{
	"product_sku",
	"product_name",
	"system_quantity",
	"counted_quantity",
	"difference",
	"notes",
}

// Row is one item in tabular form. On import only ProductSKU,
// CountedQuantity and Notes are read.
type Row struct {
	ProductSKU      string `json:"productSku"`
	ProductName     string `json:"productName"`
	SystemQuantity  int64  `json:"systemQuantity"`
	CountedQuantity int64  `json:"countedQuantity"`
	Difference      int64  `json:"difference"`
	Notes           string `json:"notes"`
}

// RowFromItem converts an item to its exported form.
func RowFromItem(item Item) Row {
	return Row{
		ProductSKU:      item.ProductSKU,
		ProductName:     item.ProductName,
		SystemQuantity:  item.SystemQuantity,
		CountedQuantity: item.CountedQuantity,
		Difference:      item.Difference,
		Notes:           item.Notes,
	}
}

// ImportLine is a decoded input line. Err is set when the line could not be
// decoded; such lines are reported as rejected without touching the session.
type ImportLine struct {
	Line int
	Row  Row
	Err  error
}

// RowRejection explains why an input line was not imported.
type RowRejection struct {
	Line   int    `json:"line"`
	Row    Row    `json:"row"`
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

// ImportReport lists the outcome of every input line.
type ImportReport struct {
	Accepted []id.ID       `json:"accepted"`
	Rejected []RowRejection `json:"rejected"`
}

// ExportRows yields the session's items ordered by line number. The sequence
// is lazy and restartable: every range re-reads the items.
func (s *Service) ExportRows(ctx context.Context, sessionID id.ID) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		var items []Item
		err := s.readOnly(ctx, func(ctx context.Context) error {
			if _, err := s.repo.GetByID(ctx, sessionID); err != nil {
				return err
			}
			var err error
			items, err = s.repo.GetItems(ctx, sessionID)
			return err
		})
		if err != nil {
			yield(Row{}, err)
			return
		}
		for _, item := range items {
			if !yield(RowFromItem(item), nil) {
				return
			}
		}
	}
}

// ImportRows adds rows to a DRAFT session; line numbers are 1-based positions in rows.
func (s *Service) ImportRows(ctx context.Context, sessionID id.ID, rows []Row) (*ImportReport, error) {
	lines := make([]ImportLine, len(rows))
	for i, r := range rows {
		lines[i] = ImportLine{Line: i + 1, Row: r}
	}
	return s.ImportLines(ctx, sessionID, lines)
}

// ImportLines adds decoded lines to a DRAFT session. Each line is independent:
// it commits in its own transaction and a failure rejects only that line.
// The call itself fails only when the session is missing or not a DRAFT.
func (s *Service) ImportLines(ctx context.Context, sessionID id.ID, lines []ImportLine) (*ImportReport, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusDraft {
		return nil, apperror.NewInvalidState(entityName, sess.Status, "import")
	}

	report := &ImportReport{
		Accepted: make([]id.ID, 0, len(lines)),
		Rejected: make([]RowRejection, 0),
	}
	for _, line := range lines {
		if line.Err != nil {
			report.Rejected = append(report.Rejected, rejection(line, line.Err))
			continue
		}
		item, err := s.addItemBySKU(ctx, sessionID, line.Row.ProductSKU, line.Row.CountedQuantity, line.Row.Notes)
		if err != nil {
			if !apperror.IsAppError(err) || apperror.IsPersistence(err) {
				// Storage failures are not a property of the row; stop here.
				return report, err
			}
			report.Rejected = append(report.Rejected, rejection(line, err))
			continue
		}
		report.Accepted = append(report.Accepted, item.ID)
	}

	logger.Info(ctx, "opname import finished",
		"session_id", sessionID,
		"accepted", len(report.Accepted),
		"rejected", len(report.Rejected),
	)
	return report, nil
}

func rejection(line ImportLine, err error) RowRejection {
	r := RowRejection{Line: line.Line, Row: line.Row, Reason: err.Error(), Code: apperror.CodeValidation}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		r.Reason = appErr.Message
		r.Code = appErr.Code
	}
	return r
}
