package app

import (
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/memory"
)

// DemoBranchID is the branch demo stock is seeded into.
var DemoBranchID = id.MustParse("01900000-0000-7000-8000-000000000001")

// DemoStock is a small catalog with opening quantities for local runs.
type DemoStock struct {
	Product  opname.Product
	Quantity int64
}

// DemoCatalog returns the demo products. IDs are fixed so reseeding is idempotent.
func DemoCatalog() []DemoStock {
	return []DemoStock{
		{opname.Product{ID: id.MustParse("01900000-0000-7000-8000-000000000101"), SKU: "SKU-0001", Name: "Mineral water 600ml", UnitCost: types.MustMoney("0.35")}, 240},
		{opname.Product{ID: id.MustParse("01900000-0000-7000-8000-000000000102"), SKU: "SKU-0002", Name: "Instant noodles", UnitCost: types.MustMoney("0.28")}, 480},
		{opname.Product{ID: id.MustParse("01900000-0000-7000-8000-000000000103"), SKU: "SKU-0003", Name: "Cooking oil 1L", UnitCost: types.MustMoney("1.90")}, 60},
		{opname.Product{ID: id.MustParse("01900000-0000-7000-8000-000000000104"), SKU: "SKU-0004", Name: "Rice 5kg", UnitCost: types.MustMoney("6.40")}, 35},
		{opname.Product{ID: id.MustParse("01900000-0000-7000-8000-000000000105"), SKU: "SKU-0005", Name: "Granulated sugar 1kg", UnitCost: types.MustMoney("1.10")}, 90},
	}
}

// SeedMemory loads the demo catalog into an in-memory store.
func SeedMemory(store *memory.Store, branchID id.ID) {
	for _, d := range DemoCatalog() {
		store.AddProduct(d.Product)
		store.SetQuantity(branchID, d.Product.ID, d.Quantity)
	}
}
