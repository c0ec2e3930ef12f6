// Package memory is an in-process backend for the opname engine. It backs the
// STORAGE=memory dev mode and the domain tests.
//
// Transactions are serialized: a transaction works on a private copy of the
// data and publishes it on commit, so a failed unit of work leaves no trace.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/numerator"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/opname"
)

type stockKey struct {
	branchID  id.ID
	productID id.ID
}

type productRecord struct {
	product opname.Product
	deleted bool
}

type state struct {
	sessions map[id.ID]opname.Session
	items    map[id.ID][]opname.Item // by session, ordered by line
	products map[id.ID]productRecord
	skus     map[string]id.ID
	stock    map[stockKey]int64
	audit    []opname.Transitioned
	moves    []opname.Movement
}

func newState() *state {
	return &state{
		sessions: make(map[id.ID]opname.Session),
		items:    make(map[id.ID][]opname.Item),
		products: make(map[id.ID]productRecord),
		skus:     make(map[string]id.ID),
		stock:    make(map[stockKey]int64),
	}
}

func (st *state) clone() *state {
	c := &state{
		sessions: make(map[id.ID]opname.Session, len(st.sessions)),
		items:    make(map[id.ID][]opname.Item, len(st.items)),
		products: make(map[id.ID]productRecord, len(st.products)),
		skus:     make(map[string]id.ID, len(st.skus)),
		stock:    make(map[stockKey]int64, len(st.stock)),
		audit:    slices.Clone(st.audit),
		moves:    slices.Clone(st.moves),
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.items {
		c.items[k] = slices.Clone(v)
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.skus {
		c.skus[k] = v
	}
	for k, v := range st.stock {
		c.stock[k] = v
	}
	return c
}

// Store implements opname.Repository, opname.InventoryStore,
// opname.ProductCatalog, opname.AuditRecorder, opname.MovementLedger,
// numerator.Generator and tx.Manager.
type Store struct {
	txMu sync.Mutex // one transaction at a time

	mu        sync.RWMutex
	committed *state

	seqMu sync.Mutex
	seqs  map[string]int64
}

var (
	_ opname.Repository     = (*Store)(nil)
	_ opname.InventoryStore = (*Store)(nil)
	_ opname.ProductCatalog = (*Store)(nil)
	_ opname.AuditRecorder  = (*Store)(nil)
	_ opname.HistoryReader  = (*Store)(nil)
	_ opname.MovementLedger = (*Store)(nil)
	_ numerator.Generator   = (*Store)(nil)
	_ tx.ReadOnlyManager    = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		committed: newState(),
		seqs:      make(map[string]int64),
	}
}

// --- Transactions ---

type txKey struct{}

type memTx struct {
	st       *state
	readOnly bool
}

// errReadOnly is returned by writes attempted inside ReadOnly.
var errReadOnly = errors.New("memory: write in read-only transaction")

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	t := &memTx{st: s.committed.clone()}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.mu.Lock()
	s.committed = t.st
	s.mu.Unlock()
	return nil
}

// ReadOnly implements tx.ReadOnlyManager. fn sees one snapshot of the
// committed data and does not block writers.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}

	s.mu.RLock()
	t := &memTx{st: s.committed, readOnly: true}
	s.mu.RUnlock()

	return fn(context.WithValue(ctx, txKey{}, t))
}

// read runs fn against the transaction's view or the committed data.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if t, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(t.st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.committed)
}

// write runs fn inside the caller's transaction or an implicit one.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		t := ctx.Value(txKey{}).(*memTx)
		if t.readOnly {
			return errReadOnly
		}
		return fn(t.st)
	})
}

// --- Seeding ---

// AddProduct registers a catalog product.
func (s *Store) AddProduct(p opname.Product) {
	_ = s.write(context.Background(), func(st *state) error {
		st.products[p.ID] = productRecord{product: p}
		st.skus[strings.ToUpper(p.SKU)] = p.ID
		return nil
	})
}

// MarkProductDeleted flags a product so inventory operations reject it.
func (s *Store) MarkProductDeleted(productID id.ID) {
	_ = s.write(context.Background(), func(st *state) error {
		if rec, ok := st.products[productID]; ok {
			rec.deleted = true
			st.products[productID] = rec
		}
		return nil
	})
}

// SetQuantity overwrites on-hand stock.
func (s *Store) SetQuantity(branchID, productID id.ID, qty int64) {
	_ = s.write(context.Background(), func(st *state) error {
		st.stock[stockKey{branchID, productID}] = qty
		return nil
	})
}

// Quantity reads committed on-hand stock, ignoring deletion marks.
func (s *Store) Quantity(branchID, productID id.ID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed.stock[stockKey{branchID, productID}]
}

// AuditTrail returns committed transition records.
func (s *Store) AuditTrail() []opname.Transitioned {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.committed.audit)
}

// --- opname.Repository ---

// Create implements opname.Repository.
func (s *Store) Create(ctx context.Context, sess *opname.Session) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.sessions[sess.ID]; ok {
			return apperror.NewDuplicate("opname_session", "id", sess.ID.String())
		}
		for _, other := range st.sessions {
			if other.Code == sess.Code {
				return apperror.NewDuplicate("opname_session", "code", sess.Code)
			}
		}
		stored := *sess
		stored.Items = nil
		st.sessions[sess.ID] = stored
		return nil
	})
}

// GetByID implements opname.Repository.
func (s *Store) GetByID(ctx context.Context, sessionID id.ID) (*opname.Session, error) {
	var out *opname.Session
	err := s.read(ctx, func(st *state) error {
		sess, ok := st.sessions[sessionID]
		if !ok {
			return apperror.NewNotFound("opname_session", sessionID.String())
		}
		out = &sess
		return nil
	})
	return out, err
}

// GetForUpdate implements opname.Repository. Transactions are already
// serialized, so it is a plain read.
func (s *Store) GetForUpdate(ctx context.Context, sessionID id.ID) (*opname.Session, error) {
	return s.GetByID(ctx, sessionID)
}

// UpdateStatus implements opname.Repository.
func (s *Store) UpdateStatus(ctx context.Context, sess *opname.Session, from opname.Status) error {
	return s.write(ctx, func(st *state) error {
		stored, ok := st.sessions[sess.ID]
		if !ok {
			return apperror.NewNotFound("opname_session", sess.ID.String())
		}
		if stored.Status != from || stored.Version != sess.Version {
			return apperror.NewConcurrentModification("opname_session", sess.ID.String())
		}
		next := *sess
		next.Items = nil
		next.Version = sess.Version + 1
		st.sessions[sess.ID] = next
		sess.Version = next.Version
		return nil
	})
}

// Delete implements opname.Repository.
func (s *Store) Delete(ctx context.Context, sessionID id.ID) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.sessions[sessionID]; !ok {
			return apperror.NewNotFound("opname_session", sessionID.String())
		}
		delete(st.sessions, sessionID)
		delete(st.items, sessionID)
		return nil
	})
}

// GetItems implements opname.Repository.
func (s *Store) GetItems(ctx context.Context, sessionID id.ID) ([]opname.Item, error) {
	var out []opname.Item
	err := s.read(ctx, func(st *state) error {
		out = slices.Clone(st.items[sessionID])
		return nil
	})
	for i := range out {
		out[i].Recalculate()
	}
	return out, err
}

// InsertItem implements opname.Repository.
func (s *Store) InsertItem(ctx context.Context, item *opname.Item) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.sessions[item.SessionID]; !ok {
			return apperror.NewNotFound("opname_session", item.SessionID.String())
		}
		for _, existing := range st.items[item.SessionID] {
			if existing.ProductID == item.ProductID {
				return apperror.NewDuplicate("opname_item", "product", item.ProductSKU)
			}
		}
		items := append(st.items[item.SessionID], *item)
		slices.SortStableFunc(items, func(a, b opname.Item) int { return a.LineNo - b.LineNo })
		st.items[item.SessionID] = items
		return nil
	})
}

// DeleteItem implements opname.Repository.
func (s *Store) DeleteItem(ctx context.Context, sessionID, itemID id.ID) error {
	return s.write(ctx, func(st *state) error {
		items := st.items[sessionID]
		idx := slices.IndexFunc(items, func(it opname.Item) bool { return it.ID == itemID })
		if idx < 0 {
			return apperror.NewNotFound("opname_item", itemID.String())
		}
		st.items[sessionID] = slices.Delete(items, idx, idx+1)
		return nil
	})
}

// CountItems implements opname.Repository.
func (s *Store) CountItems(ctx context.Context, sessionID id.ID) (int, error) {
	var n int
	err := s.read(ctx, func(st *state) error {
		n = len(st.items[sessionID])
		return nil
	})
	return n, err
}

// HasProduct implements opname.Repository.
func (s *Store) HasProduct(ctx context.Context, sessionID, productID id.ID) (bool, error) {
	var found bool
	err := s.read(ctx, func(st *state) error {
		found = slices.ContainsFunc(st.items[sessionID], func(it opname.Item) bool { return it.ProductID == productID })
		return nil
	})
	return found, err
}

// NextLineNo implements opname.Repository.
func (s *Store) NextLineNo(ctx context.Context, sessionID id.ID) (int, error) {
	var next int
	err := s.read(ctx, func(st *state) error {
		next = 1
		for _, it := range st.items[sessionID] {
			if it.LineNo >= next {
				next = it.LineNo + 1
			}
		}
		return nil
	})
	return next, err
}

// List implements opname.Repository.
func (s *Store) List(ctx context.Context, f opname.ListFilter) ([]opname.SessionSummary, int64, error) {
	field, desc, err := f.Order()
	if err != nil {
		return nil, 0, err
	}

	var matched []opname.SessionSummary
	err = s.read(ctx, func(st *state) error {
		search := strings.ToLower(f.Search)
		for _, sess := range st.sessions {
			if f.Status != nil && sess.Status != *f.Status {
				continue
			}
			if f.BranchID != nil && sess.BranchID != *f.BranchID {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(sess.Code), search) &&
				!strings.Contains(strings.ToLower(sess.Notes), search) {
				continue
			}
			if f.DateFrom != nil && sess.CreatedAt.Before(*f.DateFrom) {
				continue
			}
			if f.DateTo != nil && sess.CreatedAt.After(*f.DateTo) {
				continue
			}
			matched = append(matched, opname.SessionSummary{
				Session: sess,
				Totals:  opname.ComputeTotals(st.items[sess.ID]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(matched, func(a, b opname.SessionSummary) int {
		c := compareField(field, a.Session, b.Session)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	start := min(f.Offset(), len(matched))
	end := min(start+f.PerPage, len(matched))
	return matched[start:end], total, nil
}

// compareField orders like PostgreSQL: NULL sorts after every value ascending.
func compareField(field string, a, b opname.Session) int {
	switch field {
	case "code":
		return strings.Compare(a.Code, b.Code)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "submitted_at":
		switch {
		case a.SubmittedAt == nil && b.SubmittedAt == nil:
			return 0
		case a.SubmittedAt == nil:
			return 1
		case b.SubmittedAt == nil:
			return -1
		}
		return a.SubmittedAt.Compare(*b.SubmittedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// --- opname.ProductCatalog ---

// GetProduct implements opname.ProductCatalog.
func (s *Store) GetProduct(ctx context.Context, productID id.ID) (*opname.Product, error) {
	var out *opname.Product
	err := s.read(ctx, func(st *state) error {
		rec, ok := st.products[productID]
		if !ok || rec.deleted {
			return apperror.NewNotFound("product", productID.String())
		}
		p := rec.product
		out = &p
		return nil
	})
	return out, err
}

// GetProductBySKU implements opname.ProductCatalog. SKUs are case-insensitive.
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*opname.Product, error) {
	var productID id.ID
	err := s.read(ctx, func(st *state) error {
		pid, ok := st.skus[strings.ToUpper(strings.TrimSpace(sku))]
		if !ok {
			return apperror.NewNotFound("product", sku)
		}
		productID = pid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, productID)
}

// --- opname.InventoryStore ---

func activeProduct(st *state, productID id.ID) error {
	rec, ok := st.products[productID]
	if !ok || rec.deleted {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// GetQuantity implements opname.InventoryStore.
func (s *Store) GetQuantity(ctx context.Context, branchID, productID id.ID) (int64, error) {
	var qty int64
	err := s.read(ctx, func(st *state) error {
		if err := activeProduct(st, productID); err != nil {
			return err
		}
		qty = st.stock[stockKey{branchID, productID}]
		return nil
	})
	return qty, err
}

// ApplyDelta implements opname.InventoryStore.
func (s *Store) ApplyDelta(ctx context.Context, branchID, productID id.ID, delta int64) error {
	return s.write(ctx, func(st *state) error {
		if err := activeProduct(st, productID); err != nil {
			return err
		}
		st.stock[stockKey{branchID, productID}] += delta
		return nil
	})
}

// --- opname.AuditRecorder ---

// RecordTransition implements opname.AuditRecorder.
func (s *Store) RecordTransition(ctx context.Context, entry opname.Transitioned) error {
	return s.write(ctx, func(st *state) error {
		snapshot := *entry.Session
		entry.Session = &snapshot
		entry.Items = slices.Clone(entry.Items)
		st.audit = append(st.audit, entry)
		return nil
	})
}

// SessionHistory implements opname.HistoryReader.
func (s *Store) SessionHistory(ctx context.Context, sessionID id.ID, limit int) ([]opname.HistoryEntry, error) {
	var history []opname.HistoryEntry
	err := s.read(ctx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0 && (limit <= 0 || len(history) < limit); i-- {
			entry := st.audit[i]
			if entry.Session.ID != sessionID {
				continue
			}
			changes, err := json.Marshal(map[string]any{
				"version":    entry.Session.Version,
				"adminNotes": entry.Session.AdminNotes,
				"items":      len(entry.Items),
			})
			if err != nil {
				return err
			}
			history = append(history, opname.HistoryEntry{
				From:    entry.From,
				To:      entry.Session.Status,
				ActorID: entry.ActorID,
				At:      entry.Session.UpdatedAt,
				Changes: changes,
			})
		}
		return nil
	})
	if history == nil {
		history = []opname.HistoryEntry{}
	}
	return history, err
}

// --- opname.MovementLedger ---

// RecordMovements implements opname.MovementLedger.
func (s *Store) RecordMovements(ctx context.Context, movements []opname.Movement) error {
	return s.write(ctx, func(st *state) error {
		st.moves = append(st.moves, movements...)
		return nil
	})
}

// SessionMovements implements opname.MovementLedger.
func (s *Store) SessionMovements(ctx context.Context, sessionID id.ID) ([]opname.Movement, error) {
	movements := []opname.Movement{}
	err := s.read(ctx, func(st *state) error {
		for _, m := range st.moves {
			if m.SessionID == sessionID {
				movements = append(movements, m)
			}
		}
		return nil
	})
	slices.SortFunc(movements, func(a, b opname.Movement) int { return a.LineNo - b.LineNo })
	return movements, err
}

// --- numerator.Generator ---

// GetNextNumber implements numerator.Generator. Numbers are never rolled back.
func (s *Store) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	key := cfg.Key(period)
	s.seqs[key]++
	return cfg.Format(period, s.seqs[key]), nil
}

// SetNextNumber implements numerator.Generator.
func (s *Store) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seqs[cfg.Key(period)] = value
	return nil
}
