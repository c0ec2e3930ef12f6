package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("approve: %w", NewConcurrentModification("opname_session", "abc"))

	assert.True(t, IsConcurrentModification(wrapped))
	assert.False(t, IsState(wrapped))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(wrapped))
}

func TestIsValidation_IncludesDuplicate(t *testing.T) {
	assert.True(t, IsValidation(NewValidation("bad")))
	assert.True(t, IsValidation(NewDuplicate("item", "product_id", "p1")))
	assert.False(t, IsValidation(NewNotFound("product", "p1")))
}

func TestNewDatabase_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabase("insert item", cause)

	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestNewInvalidState_Details(t *testing.T) {
	err := NewInvalidState("opname_session", "DRAFT", "approve")

	assert.True(t, IsState(err))
	assert.Equal(t, "DRAFT", err.Details["status"])
	assert.Equal(t, "approve", err.Details["operation"])
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
}

func TestPredicates_PlainError(t *testing.T) {
	err := errors.New("boom")

	assert.False(t, IsAppError(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
}
