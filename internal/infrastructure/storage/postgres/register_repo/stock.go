// Package register_repo stores the stock movement ledger on PostgreSQL.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "reg_stock_movements"

var movementColumns = []string{
	"id", "session_id", "line_no", "branch_id", "product_id", "quantity", "period",
}

var _ opname.MovementLedger = (*StockRepo)(nil)

// StockRepo implements opname.MovementLedger.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock movement repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// RecordMovements implements opname.MovementLedger.
func (r *StockRepo) RecordMovements(ctx context.Context, movements []opname.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{m.ID, m.SessionID, m.LineNo, m.BranchID, m.ProductID, m.Quantity, m.Period})
	}

	// Fast path: COPY when inside a transaction.
	if r.txm.GetTx(ctx) != nil {
		if _, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return postgres.NewDatabaseError("copy movements", err)
		}
		return nil
	}

	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.NewDatabaseError("insert movements", err)
	}
	return nil
}

// SessionMovements implements opname.MovementLedger.
func (r *StockRepo) SessionMovements(ctx context.Context, sessionID id.ID) ([]opname.Movement, error) {
	sql, args, err := r.sessionMovementsQuery(sessionID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := make([]opname.Movement, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, postgres.NewDatabaseError("select movements", err)
	}
	return movements, nil
}

func (r *StockRepo) sessionMovementsQuery(sessionID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("line_no")
}
