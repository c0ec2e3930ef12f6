package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"backoffice/internal/core/tx"
	"backoffice/pkg/logger"
)

var tracer = otel.Tracer("backoffice/tx")

var (
	_ tx.Manager         = (*TxManager)(nil)
	_ tx.ReadOnlyManager = (*TxManager)(nil)
)

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout bounds each statement, including lock waits.
	StatementTimeout time.Duration
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// TxManager runs units of work in database transactions and hands the active
// transaction to repositories through the context.
type TxManager struct {
	pool     *pgxpool.Pool
	defaults TxOptions
}

// TxManagerOption customizes a TxManager.
type TxManagerOption func(*TxManager)

// WithStatementTimeout overrides the default statement timeout. Zero disables it.
func WithStatementTimeout(d time.Duration) TxManagerOption {
	return func(m *TxManager) {
		m.defaults.StatementTimeout = d
	}
}

// NewTxManager creates a new transaction manager.
func NewTxManager(pool *Pool, opts ...TxManagerOption) *TxManager {
	m := &TxManager{pool: pool.Pool, defaults: DefaultTxOptions()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// txKey is the context key for active transaction.
type txKey struct{}

// RunInTransaction executes fn within a transaction.
// If a transaction already exists in ctx, fn joins it.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, m.defaults, fn)
}

// ReadOnly executes fn in a read-only transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := m.defaults
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}

// RunInTransactionWithOptions executes fn with custom transaction options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
			attribute.String("tx.access_mode", string(opts.AccessMode)),
		))
	defer span.End()

	if err := m.run(ctx, opts, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return err
	}
	return nil
}

func (m *TxManager) run(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return NewDatabaseError("begin transaction", err)
	}

	if opts.StatementTimeout > 0 {
		_, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = tx.Rollback(context.Background())
			return NewDatabaseError("set statement_timeout", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		// Background context so the rollback completes even after cancellation.
		if rbErr := tx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return NewDatabaseError("commit transaction", err)
	}
	return nil
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the active transaction, or the pool outside one.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if tx := m.GetTx(ctx); tx != nil {
		return tx
	}
	return m.pool
}
