package opname_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
)

func TestReviewService_BranchScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	review := opname.NewReviewService(f.store)

	b2 := id.New()
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateSession(ctx, f.branch, f.creator, "")
		require.NoError(t, err)
	}
	_, err := f.svc.CreateSession(ctx, b2, "staff-2", "")
	require.NoError(t, err)

	page, err := review.List(ctx, opname.ListFilter{BranchID: &b2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	for _, row := range page.Data {
		assert.Equal(t, b2, row.BranchID)
	}

	all, err := review.List(ctx, opname.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
}

func TestReviewService_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	review := opname.NewReviewService(f.store)

	for i := 0; i < 11; i++ {
		_, err := f.svc.CreateSession(ctx, f.branch, f.creator, "")
		require.NoError(t, err)
	}

	page, err := review.List(ctx, opname.ListFilter{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 2, page.LastPage)
	assert.Len(t, page.Data, 1)

	empty, err := review.List(ctx, opname.ListFilter{Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)

	_, err = review.List(ctx, opname.ListFilter{PerPage: 20})
	assert.True(t, apperror.IsValidation(err))
}

func TestReviewService_PendingReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	review := opname.NewReviewService(f.store)

	_, err := f.svc.CreateSession(ctx, f.branch, f.creator, "")
	require.NoError(t, err)
	first := f.submitted(t)
	second := f.submitted(t)

	page, err := review.PendingReview(ctx, 1, 25)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, first.ID, page.Data[0].ID)
	assert.Equal(t, second.ID, page.Data[1].ID)
	assert.Equal(t, 2, page.Data[0].TotalItems)
}
