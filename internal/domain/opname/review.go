package opname

import (
	"context"

	"backoffice/internal/domain"
)

// ReviewService answers listing queries for branch users and reviewers.
// Branch scoping is decided by the caller through ListFilter.BranchID.
type ReviewService struct {
	repo Repository
}

// NewReviewService creates a review query service.
func NewReviewService(repo Repository) *ReviewService {
	return &ReviewService{repo: repo}
}

// List returns one page of session summaries with derived totals.
func (r *ReviewService) List(ctx context.Context, filter ListFilter) (*domain.PageResult[SessionSummary], error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	rows, total, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.NewPageResult(rows, total, filter.Page, filter.PerPage), nil
}

// PendingReview lists SUBMIT sessions across all branches, oldest submission first.
func (r *ReviewService) PendingReview(ctx context.Context, page, perPage int) (*domain.PageResult[SessionSummary], error) {
	status := StatusSubmit
	return r.List(ctx, ListFilter{
		Status:  &status,
		Page:    page,
		PerPage: perPage,
		OrderBy: "submitted_at",
	})
}
