package opname

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// Repository persists sessions and their items.
//
// Methods pick the active transaction up from ctx. GetForUpdate must be called
// inside a transaction; it blocks concurrent writers of the same session until
// that transaction ends.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, sessionID id.ID) (*Session, error)
	GetForUpdate(ctx context.Context, sessionID id.ID) (*Session, error)

	// UpdateStatus persists the lifecycle fields of s only if the stored row is
	// still in status "from" at version s.Version. It fails with a
	// concurrent-modification error otherwise and bumps s.Version on success.
	UpdateStatus(ctx context.Context, s *Session, from Status) error

	// Delete removes a session and its items.
	Delete(ctx context.Context, sessionID id.ID) error

	// GetItems returns items ordered by line number.
	GetItems(ctx context.Context, sessionID id.ID) ([]Item, error)
	// InsertItem fails with a duplicate error if the product is already in the session.
	InsertItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, sessionID, itemID id.ID) error
	CountItems(ctx context.Context, sessionID id.ID) (int, error)
	HasProduct(ctx context.Context, sessionID, productID id.ID) (bool, error)
	NextLineNo(ctx context.Context, sessionID id.ID) (int, error)

	// List returns one page of summaries and the total number of matches.
	// The filter is already normalized.
	List(ctx context.Context, filter ListFilter) ([]SessionSummary, int64, error)
}

// InventoryStore is the live per-branch stock the engine reconciles against.
type InventoryStore interface {
	// GetQuantity returns the current on-hand quantity (0 when never stocked).
	GetQuantity(ctx context.Context, branchID, productID id.ID) (int64, error)
	// ApplyDelta atomically adds delta to the on-hand quantity. It fails with
	// a not-found error when the product is missing or marked for deletion.
	ApplyDelta(ctx context.Context, branchID, productID id.ID, delta int64) error
}

// Movement is one stock change posted by an approved session. Quantity is
// signed: the item's difference.
type Movement struct {
	ID        id.ID     `db:"id" json:"id"`
	SessionID id.ID     `db:"session_id" json:"sessionId"`
	LineNo    int       `db:"line_no" json:"lineNo"`
	BranchID  id.ID     `db:"branch_id" json:"branchId"`
	ProductID id.ID     `db:"product_id" json:"productId"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	Period    time.Time `db:"period" json:"period"`
}

// MovementLedger keeps the movements behind on-hand quantities. Recording
// runs inside the approval transaction.
type MovementLedger interface {
	RecordMovements(ctx context.Context, movements []Movement) error
	// SessionMovements returns the movements of one session ordered by line.
	SessionMovements(ctx context.Context, sessionID id.ID) ([]Movement, error)
}

// ProductCatalog resolves the products that can be counted.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*Product, error)
}

// AuditRecorder writes a trail entry for each status change. It runs inside the
// transition's transaction: a failing recorder aborts the transition.
type AuditRecorder interface {
	RecordTransition(ctx context.Context, entry Transitioned) error
}

// Transitioned describes one committed-or-aborted status change.
type Transitioned struct {
	Session *Session
	From    Status
	ActorID string
	// Items is set for approvals: the deltas that were applied.
	Items []Item
}

// HistoryEntry is one recorded transition read back for reviewers.
type HistoryEntry struct {
	From    Status          `json:"from"`
	To      Status          `json:"to"`
	ActorID string          `json:"actorId"`
	At      time.Time       `json:"at"`
	Changes json.RawMessage `json:"changes,omitempty"`
}

// HistoryReader lists a session's transitions, newest first.
type HistoryReader interface {
	SessionHistory(ctx context.Context, sessionID id.ID, limit int) ([]HistoryEntry, error)
}

// --- Listing ---

// Allowed page sizes for review listings.
var AllowedPerPage = []int{10, 25, 50, 100}

const defaultPerPage = 10

// Sortable listing columns.
var sortableFields = map[string]struct{}{
	"created_at":   {},
	"submitted_at": {},
	"code":         {},
	"status":       {},
}

// ListFilter selects sessions for review listings.
// Nil Status or BranchID means "all".
type ListFilter struct {
	Status   *Status
	BranchID *id.ID
	// Search is a case-insensitive substring match on code and notes.
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time

	Page    int
	PerPage int
	// OrderBy is a sortable field, "-" prefixed for descending.
	// Empty means newest first.
	OrderBy string
}

// Normalize applies defaults and rejects out-of-range values.
func (f *ListFilter) Normalize() error {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Page < 0 {
		return apperror.NewValidation("page must be positive").WithDetail("page", f.Page)
	}

	if f.PerPage == 0 {
		f.PerPage = defaultPerPage
	}
	allowed := false
	for _, n := range AllowedPerPage {
		if n == f.PerPage {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.NewValidation("unsupported page size").
			WithDetail("perPage", f.PerPage).
			WithDetail("allowed", AllowedPerPage)
	}

	if f.Status != nil && !f.Status.IsValid() {
		return apperror.NewValidation("invalid status").WithDetail("status", *f.Status)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return apperror.NewValidation("dateTo is before dateFrom")
	}

	f.Search = strings.TrimSpace(f.Search)
	f.OrderBy = strings.TrimSpace(f.OrderBy)
	if _, _, err := f.Order(); err != nil {
		return err
	}
	return nil
}

// Order splits OrderBy into a column and direction.
func (f ListFilter) Order() (field string, desc bool, err error) {
	if f.OrderBy == "" {
		return "created_at", true, nil
	}

	field = f.OrderBy
	switch {
	case strings.HasPrefix(field, "-"):
		desc = true
		field = strings.TrimPrefix(field, "-")
	case strings.HasPrefix(field, "+"):
		field = strings.TrimPrefix(field, "+")
	}

	if _, ok := sortableFields[field]; !ok {
		return "", false, apperror.NewValidation("invalid orderBy").WithDetail("orderBy", f.OrderBy)
	}
	return field, desc, nil
}

// Offset is the number of rows skipped before the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}
