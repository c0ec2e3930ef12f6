package opname_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

// AuditRecorder writes opname transitions to sys_audit.
type AuditRecorder struct {
	audit *postgres.AuditService
}

var _ opname.AuditRecorder = (*AuditRecorder)(nil)

// NewAuditRecorder creates the recorder.
func NewAuditRecorder(audit *postgres.AuditService) *AuditRecorder {
	return &AuditRecorder{audit: audit}
}

// transitionChanges is the JSON payload of one transition.
type transitionChanges struct {
	From    opname.Status  `json:"from"`
	To      opname.Status  `json:"to"`
	Version int            `json:"version"`
	Notes   *string        `json:"adminNotes,omitempty"`
	Totals  *opname.Totals `json:"totals,omitempty"`
	Items   []appliedDelta `json:"items,omitempty"`
}

type appliedDelta struct {
	ProductSKU string `json:"productSku"`
	Difference int64  `json:"difference"`
}

func actionFor(to opname.Status) postgres.AuditAction {
	switch to {
	case opname.StatusSubmit:
		return postgres.AuditActionSubmit
	case opname.StatusApproved:
		return postgres.AuditActionApprove
	case opname.StatusRejected:
		return postgres.AuditActionReject
	default:
		return postgres.AuditActionCreate
	}
}

func changesFor(entry opname.Transitioned) transitionChanges {
	c := transitionChanges{
		From:    entry.From,
		To:      entry.Session.Status,
		Version: entry.Session.Version,
		Notes:   entry.Session.AdminNotes,
	}
	if len(entry.Items) > 0 {
		totals := opname.ComputeTotals(entry.Items)
		c.Totals = &totals
		for _, it := range entry.Items {
			if it.Difference != 0 {
				c.Items = append(c.Items, appliedDelta{ProductSKU: it.ProductSKU, Difference: it.Difference})
			}
		}
	}
	return c
}

// RecordTransition implements opname.AuditRecorder.
func (r *AuditRecorder) RecordTransition(ctx context.Context, entry opname.Transitioned) error {
	return r.audit.LogChange(ctx,
		"opname_session",
		entry.Session.ID,
		actionFor(entry.Session.Status),
		entry.ActorID,
		changesFor(entry),
	)
}

var _ opname.HistoryReader = (*AuditRecorder)(nil)

// SessionHistory implements opname.HistoryReader.
func (r *AuditRecorder) SessionHistory(ctx context.Context, sessionID id.ID, limit int) ([]opname.HistoryEntry, error) {
	entries, err := r.audit.GetEntityHistory(ctx, "opname_session", sessionID, limit)
	if err != nil {
		return nil, err
	}

	history := make([]opname.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		var c transitionChanges
		if len(e.Changes) > 0 {
			if err := json.Unmarshal(e.Changes, &c); err != nil {
				return nil, fmt.Errorf("decode audit entry %s: %w", e.ID, err)
			}
		}
		history = append(history, opname.HistoryEntry{
			From:    c.From,
			To:      c.To,
			ActorID: e.UserID,
			At:      e.CreatedAt,
			Changes: e.Changes,
		})
	}
	return history, nil
}
