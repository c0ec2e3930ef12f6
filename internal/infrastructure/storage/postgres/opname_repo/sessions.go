package opname_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

// Create inserts a session header.
func (r *Repo) Create(ctx context.Context, s *opname.Session) error {
	sql, args, err := Builder().
		Insert(sessionsTable).
		SetMap(insertMap(s, sessionCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.NewDatabaseError("insert "+sessionsTable, err)
	}
	return nil
}

func selectSession(sessionID id.ID) squirrel.SelectBuilder {
	return Builder().
		Select(sessionCols...).
		From(sessionsTable).
		Where(squirrel.Eq{"id": sessionID})
}

func (r *Repo) getSession(ctx context.Context, q squirrel.SelectBuilder, sessionID id.ID) (*opname.Session, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s opname.Session
	if err := pgxscan.Get(ctx, r.querier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(sessionsTable, sessionID.String())
		}
		return nil, postgres.NewDatabaseError("get "+sessionsTable, err)
	}
	return &s, nil
}

// GetByID loads a session header.
func (r *Repo) GetByID(ctx context.Context, sessionID id.ID) (*opname.Session, error) {
	return r.getSession(ctx, selectSession(sessionID), sessionID)
}

// GetForUpdate loads a session header and locks its row until the transaction ends.
func (r *Repo) GetForUpdate(ctx context.Context, sessionID id.ID) (*opname.Session, error) {
	return r.getSession(ctx, selectSession(sessionID).Suffix("FOR UPDATE"), sessionID)
}

func updateStatusQuery(s *opname.Session, from opname.Status) squirrel.UpdateBuilder {
	return Builder().
		Update(sessionsTable).
		Set("status", s.Status).
		Set("admin_notes", s.AdminNotes).
		Set("submitted_by", s.SubmittedBy).
		Set("submitted_at", s.SubmittedAt).
		Set("reviewed_by", s.ReviewedBy).
		Set("approved_at", s.ApprovedAt).
		Set("rejected_at", s.RejectedAt).
		Set("updated_at", s.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"status": from}).
		Where(squirrel.Eq{"version": s.Version})
}

// UpdateStatus writes the lifecycle fields with an optimistic status and version check.
func (r *Repo) UpdateStatus(ctx context.Context, s *opname.Session, from opname.Status) error {
	sql, args, err := updateStatusQuery(s, from).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.NewDatabaseError("update "+sessionsTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(sessionsTable, s.ID.String())
	}

	s.Version++
	return nil
}

// Delete removes a session; items go with it (ON DELETE CASCADE).
func (r *Repo) Delete(ctx context.Context, sessionID id.ID) error {
	sql, args, err := Builder().
		Delete(sessionsTable).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.NewDatabaseError("delete "+sessionsTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(sessionsTable, sessionID.String())
	}
	return nil
}
