// Package tx defines the transaction boundary used by domain services.
// Implementations live in infrastructure/storage (postgres, memory).
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// fn receives a context carrying the active transaction; repositories pick it up
// from there. If fn returns an error every write made through that context is
// discarded. Nested calls reuse the transaction already present in ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions
// for consistent multi-statement reads.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
