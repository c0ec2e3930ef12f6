// Package opname implements physical stock count reconciliation (stock opname):
// branch staff record counted quantities against a snapshot of the system
// quantity, a reviewer approves the session and every difference is applied to
// branch inventory in one transaction.
package opname

import (
	"strings"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

const (
	entityName     = "opname_session"
	itemEntityName = "opname_item"
)

// Session is a stock opname session (header).
type Session struct {
	ID       id.ID  `db:"id" json:"id"`
	Code     string `db:"code" json:"code"`
	BranchID id.ID  `db:"branch_id" json:"branchId"`
	Status   Status `db:"status" json:"status"`

	Notes      string  `db:"notes" json:"notes"`
	AdminNotes *string `db:"admin_notes" json:"adminNotes,omitempty"`

	CreatedBy   string     `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	SubmittedBy *string    `db:"submitted_by" json:"submittedBy,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	ReviewedBy  *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedAt  *time.Time `db:"rejected_at" json:"rejectedAt,omitempty"`

	// Version is bumped on every status change (optimistic locking).
	Version int `db:"version" json:"version"`

	Items []Item `db:"-" json:"items,omitempty"`
}

// NewSession creates a DRAFT session.
func NewSession(code string, branchID id.ID, createdBy, notes string, now time.Time) *Session {
	return &Session{
		ID:        id.New(),
		Code:      code,
		BranchID:  branchID,
		Status:    StatusDraft,
		Notes:     strings.TrimSpace(notes),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Validate checks header invariants that do not depend on storage.
func (s *Session) Validate() error {
	if id.IsNil(s.BranchID) {
		return apperror.NewValidation("branch is required").WithDetail("field", "branchId")
	}
	if strings.TrimSpace(s.CreatedBy) == "" {
		return apperror.NewValidation("creator is required").WithDetail("field", "createdBy")
	}
	if !s.Status.IsValid() {
		return apperror.NewValidation("invalid status").WithDetail("status", s.Status)
	}
	return nil
}

// Totals derives the aggregate figures from the loaded items.
func (s *Session) Totals() Totals {
	return ComputeTotals(s.Items)
}

// markSubmitted applies DRAFT -> SUBMIT.
func (s *Session) markSubmitted(actorID string, now time.Time) error {
	if err := Transition(s.Status, StatusSubmit, "submit"); err != nil {
		return err
	}
	s.Status = StatusSubmit
	s.SubmittedBy = &actorID
	s.SubmittedAt = &now
	s.UpdatedAt = now
	return nil
}

// markApproved applies SUBMIT -> APPROVED.
func (s *Session) markApproved(reviewerID string, now time.Time) error {
	if err := Transition(s.Status, StatusApproved, "approve"); err != nil {
		return err
	}
	s.Status = StatusApproved
	s.ReviewedBy = &reviewerID
	s.ApprovedAt = &now
	s.UpdatedAt = now
	return nil
}

// markRejected applies SUBMIT -> REJECTED.
func (s *Session) markRejected(reviewerID, adminNotes string, now time.Time) error {
	if err := Transition(s.Status, StatusRejected, "reject"); err != nil {
		return err
	}
	s.Status = StatusRejected
	s.ReviewedBy = &reviewerID
	s.AdminNotes = &adminNotes
	s.RejectedAt = &now
	s.UpdatedAt = now
	return nil
}

// Item is one counted product within a session.
type Item struct {
	ID          id.ID  `db:"id" json:"id"`
	SessionID   id.ID  `db:"session_id" json:"sessionId"`
	LineNo      int    `db:"line_no" json:"lineNo"`
	ProductID   id.ID  `db:"product_id" json:"productId"`
	ProductSKU  string `db:"product_sku" json:"productSku"`
	ProductName string `db:"product_name" json:"productName"`

	// SystemQuantity is the branch stock at the time the item was added.
	SystemQuantity  int64 `db:"system_quantity" json:"systemQuantity"`
	CountedQuantity int64 `db:"counted_quantity" json:"countedQuantity"`
	// Difference is always CountedQuantity - SystemQuantity.
	Difference int64 `db:"difference" json:"difference"`

	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	Notes     string      `db:"notes" json:"notes"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// NewItem snapshots product data and the system quantity into a new item.
func NewItem(sessionID id.ID, lineNo int, product *Product, systemQty, countedQty int64, notes string, now time.Time) Item {
	item := Item{
		ID:              id.New(),
		SessionID:       sessionID,
		LineNo:          lineNo,
		ProductID:       product.ID,
		ProductSKU:      product.SKU,
		ProductName:     product.Name,
		SystemQuantity:  systemQty,
		CountedQuantity: countedQty,
		UnitCost:        product.UnitCost,
		Notes:           strings.TrimSpace(notes),
		CreatedAt:       now,
	}
	item.Recalculate()
	return item
}

// Recalculate refreshes Difference from the two quantities.
func (i *Item) Recalculate() {
	i.Difference = i.CountedQuantity - i.SystemQuantity
}

// DifferenceValue is the difference valued at the snapshot unit cost.
func (i Item) DifferenceValue() types.Money {
	return types.Extend(i.UnitCost, i.Difference)
}

// MaxCountedQuantity bounds a single count so differences and session
// totals stay well inside int64.
const MaxCountedQuantity int64 = 1_000_000_000_000

// ValidateCountedQuantity rejects negative and implausibly large counts.
func ValidateCountedQuantity(qty int64) error {
	if qty < 0 {
		return apperror.NewValidation("counted quantity must not be negative").
			WithDetail("field", "countedQuantity").
			WithDetail("value", qty)
	}
	if qty > MaxCountedQuantity {
		return apperror.NewValidation("counted quantity is too large").
			WithDetail("field", "countedQuantity").
			WithDetail("value", qty).
			WithDetail("max", MaxCountedQuantity)
	}
	return nil
}

// Totals are derived from items, never stored.
type Totals struct {
	TotalItems              int         `db:"total_items" json:"totalItems"`
	TotalPositiveAdjustment int64       `db:"total_positive_adjustment" json:"totalPositiveAdjustment"`
	TotalNegativeAdjustment int64       `db:"total_negative_adjustment" json:"totalNegativeAdjustment"`
	TotalAdjustmentValue    types.Money `db:"total_adjustment_value" json:"totalAdjustmentValue"`
}

// ComputeTotals sums item differences. TotalNegativeAdjustment is a magnitude.
func ComputeTotals(items []Item) Totals {
	t := Totals{TotalItems: len(items), TotalAdjustmentValue: types.Zero()}
	for i := range items {
		d := items[i].CountedQuantity - items[i].SystemQuantity
		switch {
		case d > 0:
			t.TotalPositiveAdjustment += d
		case d < 0:
			t.TotalNegativeAdjustment += -d
		}
		t.TotalAdjustmentValue = t.TotalAdjustmentValue.Add(types.Extend(items[i].UnitCost, d))
	}
	return t
}

// NetAdjustment equals the sum of all item differences.
func (t Totals) NetAdjustment() int64 {
	return t.TotalPositiveAdjustment - t.TotalNegativeAdjustment
}

// SessionSummary is a listing row: the header plus totals aggregated in storage.
type SessionSummary struct {
	Session
	Totals
}

// Product is the catalog data an item snapshots.
type Product struct {
	ID       id.ID       `db:"id" json:"id"`
	SKU      string      `db:"sku" json:"sku"`
	Name     string      `db:"name" json:"name"`
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`
}
