// Package inventory_repo provides branch stock and the product catalog on PostgreSQL.
package inventory_repo

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "cat_products"
	stockTable    = "reg_branch_stock"
)

var (
	_ opname.InventoryStore = (*Repo)(nil)
	_ opname.ProductCatalog = (*Repo)(nil)
)

// Repo implements opname.InventoryStore and opname.ProductCatalog.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// New creates the repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// quantitySQL reads on-hand stock; a product never stocked in the branch has 0.
const quantitySQL = `
	SELECT COALESCE(b.quantity, 0)
	FROM cat_products p
	LEFT JOIN reg_branch_stock b ON b.product_id = p.id AND b.branch_id = $1
	WHERE p.id = $2 AND NOT p.deletion_mark
`

// GetQuantity implements opname.InventoryStore.
func (r *Repo) GetQuantity(ctx context.Context, branchID, productID id.ID) (int64, error) {
	var qty int64
	err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &qty, quantitySQL, branchID, productID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return 0, apperror.NewNotFound(productsTable, productID.String())
		}
		return 0, postgres.NewDatabaseError("get quantity", err)
	}
	return qty, nil
}

// applyDeltaSQL is a single atomic increment. The SELECT yields no row for a
// missing or deletion-marked product, so nothing is written and RowsAffected is 0.
const applyDeltaSQL = `
	INSERT INTO reg_branch_stock (branch_id, product_id, quantity, updated_at)
	SELECT $1, p.id, $3, now()
	FROM cat_products p
	WHERE p.id = $2 AND NOT p.deletion_mark
	ON CONFLICT (branch_id, product_id)
	DO UPDATE SET quantity = reg_branch_stock.quantity + EXCLUDED.quantity,
	              updated_at = EXCLUDED.updated_at
`

// ApplyDelta implements opname.InventoryStore.
func (r *Repo) ApplyDelta(ctx context.Context, branchID, productID id.ID, delta int64) error {
	result, err := r.txm.GetQuerier(ctx).Exec(ctx, applyDeltaSQL, branchID, productID, delta)
	if err != nil {
		return postgres.NewDatabaseError("apply stock delta", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(productsTable, productID.String()).
			WithDetail("branch_id", branchID.String())
	}
	return nil
}

const setQuantitySQL = `
	INSERT INTO reg_branch_stock (branch_id, product_id, quantity, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (branch_id, product_id)
	DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
`

// SetQuantity overwrites on-hand stock outside the opname workflow (seeding,
// external stock takes).
func (r *Repo) SetQuantity(ctx context.Context, branchID, productID id.ID, qty int64) error {
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, setQuantitySQL, branchID, productID, qty); err != nil {
		return postgres.NewDatabaseError("set quantity", err)
	}
	return nil
}

// SetQuantities overwrites several quantities of one branch in a single
// round-trip. It must run inside a transaction.
func (r *Repo) SetQuantities(ctx context.Context, branchID id.ID, quantities map[id.ID]int64) error {
	queries := make([]postgres.BatchQuery, 0, len(quantities))
	for productID, qty := range quantities {
		queries = append(queries, postgres.BatchQuery{SQL: setQuantitySQL, Args: []any{branchID, productID, qty}})
	}
	if err := postgres.NewBatchExecutor(r.txm).ExecuteBatch(ctx, queries); err != nil {
		return postgres.NewDatabaseError("set quantities", err)
	}
	return nil
}
