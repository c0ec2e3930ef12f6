package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
)

// AuditAction represents the type of audited operation.
type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionSubmit  AuditAction = "submit"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
	AuditActionDelete  AuditAction = "delete"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          id.ID           `db:"entity_id" json:"entityId"`
	Action            AuditAction     `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"userId"`
	UserEmail         string          `db:"user_email" json:"userEmail,omitempty"`
	Changes           json.RawMessage `db:"changes" json:"changes,omitempty"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	Metadata          json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// AuditService writes and reads the sys_audit trail. Approvals carry the full
// applied item set, so large payloads are zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 8 * 1024,
	}, nil
}

// compress moves oversized Changes into ChangesCompressed.
func (s *AuditService) compress(entry *AuditEntry) {
	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
}

// decompress restores Changes from ChangesCompressed.
func (s *AuditService) decompress(entry *AuditEntry) error {
	if entry.CompressionAlgo != CompressionZstd || len(entry.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(entry.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	entry.Changes = raw
	entry.ChangesCompressed = nil
	return nil
}

// Log records an audit entry through the active transaction, if any.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if user := appctx.GetUser(ctx); user != nil {
		if entry.UserID == "" {
			entry.UserID = user.UserID
		}
		if entry.UserEmail == "" {
			entry.UserEmail = user.Email
		}
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.compress(&entry)

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, user_email,
			changes, changes_compressed, compression_algo, metadata,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.UserID, entry.UserEmail,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo,
		entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return NewDatabaseError("insert audit entry", err)
	}
	return nil
}

// LogChange is a convenience method for logging entity changes.
func (s *AuditService) LogChange(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	action AuditAction,
	userID string,
	changes any,
) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     userID,
		Changes:    changesJSON,
	})
}

// GetEntityHistory retrieves audit history for an entity, newest first.
func (s *AuditService) GetEntityHistory(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	limit int,
) ([]AuditEntry, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id, user_email,
			   changes, changes_compressed, compression_algo, metadata,
			   created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, NewDatabaseError("query audit history", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID, &e.UserEmail,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.Metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, NewDatabaseError("scan audit entry", err)
		}
		if err := s.decompress(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("iterate audit history", err)
	}
	return entries, nil
}
