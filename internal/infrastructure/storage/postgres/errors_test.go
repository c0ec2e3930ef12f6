package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"backoffice/internal/core/apperror"
)

func TestNewDatabaseError(t *testing.T) {
	t.Run("unique violation", func(t *testing.T) {
		err := NewDatabaseError("insert item", &pgconn.PgError{
			Code:           "23505",
			TableName:      "opname_items",
			ConstraintName: "opname_items_session_product_key",
		})
		assert.True(t, apperror.IsValidation(err))
		assert.False(t, apperror.IsPersistence(err))
	})

	t.Run("foreign key violation", func(t *testing.T) {
		err := NewDatabaseError("insert item", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"}))
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("other failures are persistence errors", func(t *testing.T) {
		err := NewDatabaseError("select session", context.DeadlineExceeded)
		assert.True(t, apperror.IsPersistence(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("app errors pass through", func(t *testing.T) {
		orig := apperror.NewNotFound("product", "x")
		assert.Same(t, orig, NewDatabaseError("op", orig))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, NewDatabaseError("op", nil))
	})

	assert.False(t, errors.Is(NewDatabaseError("op", errors.New("x")), context.Canceled))
}
