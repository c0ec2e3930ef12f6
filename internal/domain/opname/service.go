package opname

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/numerator"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain"
	"backoffice/pkg/logger"
)

var tracer = otel.Tracer("backoffice/opname")

// Service is the reconciliation engine: it drives sessions through
// DRAFT -> SUBMIT -> APPROVED | REJECTED and applies approved differences
// to branch inventory.
type Service struct {
	repo      Repository
	catalog   ProductCatalog
	inventory InventoryStore
	numerator numerator.Generator
	txManager tx.Manager
	audit     AuditRecorder  // optional
	ledger    MovementLedger // optional
	hooks     *domain.HookRegistry[*Session]
	cfg       Config
}

// NewService creates a new opname service.
func NewService(
	repo Repository,
	catalog ProductCatalog,
	inventory InventoryStore,
	gen numerator.Generator,
	txManager tx.Manager,
	cfg Config,
) *Service {
	def := DefaultConfig()
	if cfg.CodePrefix == "" {
		cfg.CodePrefix = def.CodePrefix
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		inventory: inventory,
		numerator: gen,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Session](),
		cfg:       cfg,
	}
}

// SetAuditRecorder enables the transition trail.
func (s *Service) SetAuditRecorder(r AuditRecorder) {
	s.audit = r
}

// SetMovementLedger makes approvals post a movement per applied delta.
func (s *Service) SetMovementLedger(l MovementLedger) {
	s.ledger = l
}

// Hooks returns the hook registry for post-commit callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Session] {
	return s.hooks
}

// CreateSession opens a DRAFT session for branchID.
func (s *Service) CreateSession(ctx context.Context, branchID id.ID, creatorID, notes string) (*Session, error) {
	now := s.cfg.Now()
	sess := NewSession("", branchID, creatorID, notes, now)
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	// Numbering runs outside the business transaction, like every other document.
	code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(s.cfg.CodePrefix), &numerator.Options{Strategy: NumeratorStrategy}, now)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	sess.Code = code

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	s.runHooks(ctx, domain.AfterCreate, sess)
	logger.Info(ctx, "opname session created", "id", sess.ID, "code", sess.Code, "branch_id", sess.BranchID)
	return sess, nil
}

// GetSessionHeader returns a session without loading its items.
func (s *Service) GetSessionHeader(ctx context.Context, sessionID id.ID) (*Session, error) {
	return s.repo.GetByID(ctx, sessionID)
}

// GetSession returns a session with its items.
func (s *Service) GetSession(ctx context.Context, sessionID id.ID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	sess.Items = items
	return sess, nil
}

// AddItem counts productID in a DRAFT session, snapshotting the current
// branch quantity as the system quantity.
func (s *Service) AddItem(ctx context.Context, sessionID, productID id.ID, countedQty int64, notes string) (*Item, error) {
	if err := ValidateCountedQuantity(countedQty); err != nil {
		return nil, err
	}

	var item *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sess, err := s.lockDraft(ctx, sessionID, "add item")
		if err != nil {
			return err
		}
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		item, err = s.insertItem(ctx, sess, product, countedQty, notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "opname item added", "session_id", sessionID, "product_id", productID, "difference", item.Difference)
	return item, nil
}

// addItemBySKU is AddItem keyed by SKU, used by imports.
func (s *Service) addItemBySKU(ctx context.Context, sessionID id.ID, sku string, countedQty int64, notes string) (*Item, error) {
	if err := ValidateCountedQuantity(countedQty); err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apperror.NewValidation("product sku is required").WithDetail("field", "product_sku")
	}

	var item *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sess, err := s.lockDraft(ctx, sessionID, "import")
		if err != nil {
			return err
		}
		product, err := s.catalog.GetProductBySKU(ctx, sku)
		if err != nil {
			return err
		}
		item, err = s.insertItem(ctx, sess, product, countedQty, notes)
		return err
	})
	return item, err
}

// insertItem must run under the session row lock taken by lockDraft.
func (s *Service) insertItem(ctx context.Context, sess *Session, product *Product, countedQty int64, notes string) (*Item, error) {
	dup, err := s.repo.HasProduct(ctx, sess.ID, product.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperror.NewDuplicate(itemEntityName, "product", product.SKU).
			WithDetail("session_id", sess.ID.String())
	}

	systemQty, err := s.inventory.GetQuantity(ctx, sess.BranchID, product.ID)
	if err != nil {
		return nil, fmt.Errorf("read system quantity: %w", err)
	}

	lineNo, err := s.repo.NextLineNo(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	item := NewItem(sess.ID, lineNo, product, systemQty, countedQty, notes, s.cfg.Now())
	if err := s.repo.InsertItem(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes an item from a DRAFT session.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.lockDraft(ctx, sessionID, "remove item"); err != nil {
			return err
		}
		return s.repo.DeleteItem(ctx, sessionID, itemID)
	})
}

// Submit hands a DRAFT session with at least one item over for review.
func (s *Service) Submit(ctx context.Context, sessionID id.ID, actorID string) (*Session, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, apperror.NewValidation("actor is required")
	}

	var sess *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sess, err = s.repo.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := Transition(sess.Status, StatusSubmit, "submit"); err != nil {
			return err
		}

		n, err := s.repo.CountItems(ctx, sessionID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.NewValidation("session has no items").WithDetail("session_id", sessionID.String())
		}

		from := sess.Status
		if err := sess.markSubmitted(actorID, s.cfg.Now()); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, sess, from); err != nil {
			return err
		}
		if sess.Items, err = s.repo.GetItems(ctx, sessionID); err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		return s.recordTransition(ctx, sess, from, actorID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.runHooks(ctx, domain.AfterSubmit, sess)
	logger.Info(ctx, "opname session submitted", "id", sess.ID, "code", sess.Code)
	return sess, nil
}

// Approve reconciles a SUBMIT session: the status change and one inventory
// delta per non-zero item commit together or not at all. Of two concurrent
// approvals exactly one succeeds; the other gets a concurrent-modification error.
func (s *Service) Approve(ctx context.Context, sessionID id.ID, reviewerID string) (*Session, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, apperror.NewValidation("reviewer is required")
	}

	ctx, span := tracer.Start(ctx, "opname.approve")
	defer span.End()
	span.SetAttributes(attribute.String("opname.session_id", sessionID.String()))

	var sess *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sess, err = s.lockForReview(ctx, sessionID, "approve")
		if err != nil {
			return err
		}

		from := sess.Status
		if err := sess.markApproved(reviewerID, s.cfg.Now()); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, sess, from); err != nil {
			return err
		}

		items, err := s.repo.GetItems(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		var movements []Movement
		for _, item := range items {
			if item.Difference == 0 {
				continue
			}
			if err := s.inventory.ApplyDelta(ctx, sess.BranchID, item.ProductID, item.Difference); err != nil {
				return fmt.Errorf("apply delta for %s (line %d): %w", item.ProductSKU, item.LineNo, err)
			}
			movements = append(movements, Movement{
				ID:        id.New(),
				SessionID: sess.ID,
				LineNo:    item.LineNo,
				BranchID:  sess.BranchID,
				ProductID: item.ProductID,
				Quantity:  item.Difference,
				Period:    *sess.ApprovedAt,
			})
		}
		sess.Items = items

		if s.ledger != nil && len(movements) > 0 {
			if err := s.ledger.RecordMovements(ctx, movements); err != nil {
				return fmt.Errorf("record movements: %w", err)
			}
		}

		return s.recordTransition(ctx, sess, from, reviewerID, items)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve failed")
		return nil, err
	}

	totals := sess.Totals()
	span.SetAttributes(attribute.Int("opname.items", totals.TotalItems))
	s.runHooks(ctx, domain.AfterApprove, sess)
	logger.Info(ctx, "opname session approved",
		"id", sess.ID,
		"code", sess.Code,
		"items", totals.TotalItems,
		"positive", totals.TotalPositiveAdjustment,
		"negative", totals.TotalNegativeAdjustment,
	)
	return sess, nil
}

// Reject closes a SUBMIT session without touching inventory.
func (s *Service) Reject(ctx context.Context, sessionID id.ID, reviewerID, adminNotes string) (*Session, error) {
	adminNotes = strings.TrimSpace(adminNotes)
	if adminNotes == "" {
		return nil, apperror.NewValidation("admin notes are required to reject").WithDetail("field", "adminNotes")
	}
	if strings.TrimSpace(reviewerID) == "" {
		return nil, apperror.NewValidation("reviewer is required")
	}

	var sess *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sess, err = s.lockForReview(ctx, sessionID, "reject")
		if err != nil {
			return err
		}

		from := sess.Status
		if err := sess.markRejected(reviewerID, adminNotes, s.cfg.Now()); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, sess, from); err != nil {
			return err
		}
		if sess.Items, err = s.repo.GetItems(ctx, sessionID); err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		return s.recordTransition(ctx, sess, from, reviewerID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.runHooks(ctx, domain.AfterReject, sess)
	logger.Info(ctx, "opname session rejected", "id", sess.ID, "code", sess.Code)
	return sess, nil
}

// DiscardDraft deletes a DRAFT session. Only its creator may discard it.
func (s *Service) DiscardDraft(ctx context.Context, sessionID id.ID, actorID string) error {
	var sess *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sess, err = s.lockDraft(ctx, sessionID, "discard")
		if err != nil {
			return err
		}
		if sess.CreatedBy != actorID {
			return apperror.NewForbidden("only the creator can discard a draft").
				WithDetail("session_id", sessionID.String())
		}
		return s.repo.Delete(ctx, sessionID)
	})
	if err != nil {
		return err
	}

	s.runHooks(ctx, domain.AfterDelete, sess)
	logger.Info(ctx, "opname draft discarded", "id", sess.ID, "code", sess.Code)
	return nil
}

// lockDraft locks the session row and requires DRAFT.
func (s *Service) lockDraft(ctx context.Context, sessionID id.ID, operation string) (*Session, error) {
	sess, err := s.repo.GetForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusDraft {
		return nil, apperror.NewInvalidState(entityName, sess.Status, operation)
	}
	return sess, nil
}

// lockForReview locks the session row and requires SUBMIT. A session already
// closed by another reviewer reports a concurrent modification, not a state error.
func (s *Service) lockForReview(ctx context.Context, sessionID id.ID, operation string) (*Session, error) {
	sess, err := s.repo.GetForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Status == StatusSubmit:
		return sess, nil
	case sess.Status.IsTerminal():
		return nil, apperror.NewConcurrentModification(entityName, sessionID.String()).
			WithDetail("status", sess.Status).
			WithDetail("operation", operation)
	default:
		return nil, apperror.NewInvalidState(entityName, sess.Status, operation)
	}
}

func (s *Service) recordTransition(ctx context.Context, sess *Session, from Status, actorID string, items []Item) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.RecordTransition(ctx, Transitioned{Session: sess, From: from, ActorID: actorID, Items: items}); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// readOnly runs fn in a read-only transaction when the manager supports one.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

func (s *Service) runHooks(ctx context.Context, event domain.HookEvent, sess *Session) {
	if err := s.hooks.Run(ctx, event, sess); err != nil {
		logger.Warn(ctx, "opname hook failed", "event", event, "id", sess.ID, "error", err)
	}
}
