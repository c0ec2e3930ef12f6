package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"backoffice/internal/config"
	"backoffice/pkg/logger"
)

func TestNew_Memory(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, config.Config{Storage: config.StorageMemory, CodePrefix: "OPN"})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Memory)
	assert.Nil(t, a.Pool)
	SeedMemory(a.Memory, DemoBranchID)

	sess, err := a.Opname.CreateSession(ctx, DemoBranchID, "staff-1", "")
	require.NoError(t, err)
	assert.Contains(t, sess.Code, "OPN-")

	item, err := a.Opname.AddItem(ctx, sess.ID, DemoCatalog()[0].Product.ID, 238, "")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), item.Difference)

	assert.NotNil(t, a.HealthHandler("test"))
}

func TestNew_UnknownStorage(t *testing.T) {
	_, err := New(context.Background(), config.Config{Storage: "sqlite"})
	assert.Error(t, err)
}

func TestDemoCatalog_UniqueSKUs(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range DemoCatalog() {
		assert.False(t, seen[d.Product.SKU], d.Product.SKU)
		seen[d.Product.SKU] = true
		assert.Positive(t, d.Quantity)
	}
}

func TestNew_LogsApprovedAdjustments(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithLogger(context.Background(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	a, err := New(ctx, config.Config{Storage: config.StorageMemory, CodePrefix: "OPN"})
	require.NoError(t, err)
	defer a.Close()
	SeedMemory(a.Memory, DemoBranchID)

	catalog := DemoCatalog()
	sess, err := a.Opname.CreateSession(ctx, DemoBranchID, "staff-1", "")
	require.NoError(t, err)
	_, err = a.Opname.AddItem(ctx, sess.ID, catalog[0].Product.ID, catalog[0].Quantity-2, "")
	require.NoError(t, err)
	_, err = a.Opname.AddItem(ctx, sess.ID, catalog[1].Product.ID, catalog[1].Quantity, "")
	require.NoError(t, err)
	_, err = a.Opname.Submit(ctx, sess.ID, "staff-1")
	require.NoError(t, err)
	_, err = a.Opname.Approve(ctx, sess.ID, "reviewer-1")
	require.NoError(t, err)

	adjusted := logs.FilterMessage("stock adjusted").All()
	require.Len(t, adjusted, 1, "unchanged lines are not logged")
	fields := adjusted[0].ContextMap()
	assert.Equal(t, "reconciliation", fields["component"])
	assert.Equal(t, catalog[0].Product.SKU, fields["sku"])
	assert.Equal(t, int64(-2), fields["delta"])
}
