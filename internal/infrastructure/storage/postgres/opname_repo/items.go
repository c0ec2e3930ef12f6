package opname_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

// GetItems returns a session's items ordered by line number.
func (r *Repo) GetItems(ctx context.Context, sessionID id.ID) ([]opname.Item, error) {
	sql, args, err := Builder().
		Select(itemCols...).
		From(itemsTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := make([]opname.Item, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.NewDatabaseError("select "+itemsTable, err)
	}
	return items, nil
}

// InsertItem adds an item. A second item for the same product violates
// opname_items_session_product_key and surfaces as a duplicate error.
func (r *Repo) InsertItem(ctx context.Context, item *opname.Item) error {
	sql, args, err := Builder().
		Insert(itemsTable).
		SetMap(insertMap(item, itemInsertCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.NewDatabaseError("insert "+itemsTable, err)
	}
	return nil
}

// DeleteItem removes one item of a session.
func (r *Repo) DeleteItem(ctx context.Context, sessionID, itemID id.ID) error {
	sql, args, err := Builder().
		Delete(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.NewDatabaseError("delete "+itemsTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(itemsTable, itemID.String())
	}
	return nil
}

// CountItems returns the number of items in a session.
func (r *Repo) CountItems(ctx context.Context, sessionID id.ID) (int, error) {
	sql, args, err := Builder().
		Select("COUNT(*)").
		From(itemsTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, postgres.NewDatabaseError("count "+itemsTable, err)
	}
	return n, nil
}

// HasProduct reports whether the product is already counted in the session.
func (r *Repo) HasProduct(ctx context.Context, sessionID, productID id.ID) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM ` + itemsTable + ` WHERE session_id = $1 AND product_id = $2)`

	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, sql, sessionID, productID).Scan(&exists); err != nil {
		return false, postgres.NewDatabaseError("exists "+itemsTable, err)
	}
	return exists, nil
}

// NextLineNo returns the line number for the next item.
func (r *Repo) NextLineNo(ctx context.Context, sessionID id.ID) (int, error) {
	sql, args, err := Builder().
		Select("COALESCE(MAX(line_no), 0) + 1").
		From(itemsTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build line no: %w", err)
	}

	var next int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&next); err != nil {
		return 0, postgres.NewDatabaseError("next line no", err)
	}
	return next, nil
}
