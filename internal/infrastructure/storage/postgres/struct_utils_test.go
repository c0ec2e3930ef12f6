package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/opname"
)

func TestExtractDBColumns_SkipsIgnoredFields(t *testing.T) {
	cols := ExtractDBColumns[opname.Session]()

	for _, expected := range []string{"id", "code", "branch_id", "status", "admin_notes", "version"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "items")
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[opname.SessionSummary]()

	assert.Contains(t, cols, "code")
	assert.Contains(t, cols, "total_items")
	assert.Contains(t, cols, "total_adjustment_value")
}

func TestStructToMap_Item(t *testing.T) {
	now := time.Now().UTC()
	item := opname.Item{
		ID:              id.New(),
		SessionID:       id.New(),
		LineNo:          3,
		ProductSKU:      "P1",
		SystemQuantity:  10,
		CountedQuantity: 13,
		Difference:      3,
		UnitCost:        types.MustMoney("2.50"),
		CreatedAt:       now,
	}

	m := StructToMap(item)

	assert.Equal(t, item.ID, m["id"])
	assert.Equal(t, 3, m["line_no"])
	assert.Equal(t, int64(13), m["counted_quantity"])
	assert.Equal(t, "P1", m["product_sku"])
	assert.Equal(t, now, m["created_at"])
	assert.True(t, types.MustMoney("2.5").Equal(m["unit_cost"].(types.Money)))
}
