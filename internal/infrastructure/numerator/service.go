// Package numerator provides the PostgreSQL implementation of core/numerator.Generator
// backed by the sys_sequences table.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "backoffice/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides code numbering on top of sys_sequences.
// Calls run outside business transactions so a rolled back session still
// consumes its number and concurrent creators never wait on each other.
type Service struct {
	querier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a new numerator service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// GetNextNumber implements corenumerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := cfg.Key(period)
	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, key, opts)
	default:
		num, err = s.getNextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return cfg.Format(period, num), nil
}

const upsertIncrementSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
	RETURNING current_val`

func (s *Service) getNextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	if err := s.querier.QueryRow(ctx, upsertIncrementSQL, key, int64(1)).Scan(&num); err != nil {
		return 0, fmt.Errorf("strict next %s: %w", key, err)
	}
	return num, nil
}

// getNextCached serves numbers from memory, reserving a new range when exhausted.
func (s *Service) getNextCached(ctx context.Context, key string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		var newMax int64
		if err := s.querier.QueryRow(ctx, upsertIncrementSQL, key, size).Scan(&newMax); err != nil {
			return 0, fmt.Errorf("reserve range %s: %w", key, err)
		}
		// Reserved range is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber implements corenumerator.Generator.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := cfg.Key(period)

	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()

	if err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}
	return nil
}
