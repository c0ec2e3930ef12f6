// Package domain provides types shared by the business modules.
package domain

import (
	"context"
	"sync"
)

// --- Pagination ---

// PageResult is one page of a filtered listing.
type PageResult[T any] struct {
	Data     []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PerPage  int   `json:"perPage"`
	LastPage int   `json:"lastPage"`
}

// NewPageResult computes LastPage from total and perPage.
// An empty listing still has one (empty) page.
func NewPageResult[T any](data []T, total int64, page, perPage int) *PageResult[T] {
	if data == nil {
		data = []T{}
	}
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &PageResult[T]{
		Data:     data,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: lastPage,
	}
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	AfterCreate  HookEvent = "after_create"
	AfterSubmit  HookEvent = "after_submit"
	AfterApprove HookEvent = "after_approve"
	AfterReject  HookEvent = "after_reject"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
// Hooks run after the transaction commits; their errors never undo the change.
// It is safe for concurrent use; a Run already in progress keeps the hooks it started with.
type HookRegistry[T any] struct {
	mu    sync.RWMutex
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event and stops at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	r.mu.RLock()
	hooks := r.hooks[event]
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
