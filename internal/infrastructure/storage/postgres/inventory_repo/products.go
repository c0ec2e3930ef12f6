package inventory_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

var productCols = postgres.ExtractDBColumns[opname.Product]()

func (r *Repo) activeProducts() squirrel.SelectBuilder {
	return r.builder.
		Select(productCols...).
		From(productsTable).
		Where(squirrel.Eq{"deletion_mark": false})
}

func (r *Repo) getProduct(ctx context.Context, q squirrel.SelectBuilder, key string) (*opname.Product, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p opname.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", key)
		}
		return nil, postgres.NewDatabaseError("get product", err)
	}
	return &p, nil
}

// GetProduct implements opname.ProductCatalog.
func (r *Repo) GetProduct(ctx context.Context, productID id.ID) (*opname.Product, error) {
	return r.getProduct(ctx, r.activeProducts().Where(squirrel.Eq{"id": productID}), productID.String())
}

// GetProductBySKU implements opname.ProductCatalog. SKUs are case-insensitive.
func (r *Repo) GetProductBySKU(ctx context.Context, sku string) (*opname.Product, error) {
	sku = strings.TrimSpace(sku)
	return r.getProduct(ctx, r.activeProducts().Where("upper(sku) = upper(?)", sku), sku)
}

// productCopyColumns is the COPY layout used by ImportProducts.
var productCopyColumns = []string{"id", "sku", "name", "unit_cost"}

// ImportProducts bulk-loads catalog products with COPY. It must run inside a
// transaction.
func (r *Repo) ImportProducts(ctx context.Context, products []opname.Product) (int64, error) {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		if id.IsNil(p.ID) {
			p.ID = id.New()
		}
		rows = append(rows, []any{p.ID, strings.TrimSpace(p.SKU), p.Name, p.UnitCost})
	}

	n, err := postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, productsTable, productCopyColumns, rows)
	if err != nil {
		return 0, postgres.NewDatabaseError("copy products", err)
	}
	return n, nil
}
