// Package numerator provides domain contracts for human-readable document codes.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator hands out sequential codes.
// Pattern: PREFIX-YEAR-XXXXX (e.g., SO-2026-00001).
type Generator interface {
	// GetNextNumber returns the next code for cfg within period.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves the sequence (data migration from a legacy system).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
