package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"backoffice/internal/core/apperror"
)

// PostgreSQL error codes mapped to application errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// NewDatabaseError converts a driver error into an AppError.
// Constraint violations become client errors; everything else is a
// persistence failure whose cause is kept for logs only.
func NewDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewDuplicate(pgErr.TableName, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewNotFound(pgErr.TableName, pgErr.Detail).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgCheckViolation:
			return apperror.NewValidation("value violates constraint " + pgErr.ConstraintName).WithCause(err)
		}
	}
	return apperror.NewDatabase(op, err)
}
