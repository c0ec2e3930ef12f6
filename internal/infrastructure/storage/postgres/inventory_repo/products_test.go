package inventory_repo

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
)

func TestActiveProducts_SQL(t *testing.T) {
	repo := New(nil)
	productID := id.New()

	sql, args, err := repo.activeProducts().Where(squirrel.Eq{"id": productID}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, sku, name, unit_cost FROM cat_products WHERE deletion_mark = $1 AND id = $2", sql)
	assert.Equal(t, []any{false, productID.String()}, args)

	sql, args, err = repo.activeProducts().Where("upper(sku) = upper(?)", "p-01").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, sku, name, unit_cost FROM cat_products WHERE deletion_mark = $1 AND upper(sku) = upper($2)", sql)
	assert.Equal(t, []any{false, "p-01"}, args)
}

func TestApplyDeltaSQL_IsSingleStatementIncrement(t *testing.T) {
	normalized := strings.Join(strings.Fields(applyDeltaSQL), " ")

	assert.Contains(t, normalized, "WHERE p.id = $2 AND NOT p.deletion_mark")
	assert.Contains(t, normalized, "ON CONFLICT (branch_id, product_id) DO UPDATE SET quantity = reg_branch_stock.quantity + EXCLUDED.quantity")
}

func TestProductCopyColumns(t *testing.T) {
	for _, c := range productCopyColumns {
		assert.Contains(t, productCols, c)
	}
}
