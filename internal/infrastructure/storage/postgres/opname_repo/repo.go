// Package opname_repo provides the PostgreSQL implementation of opname.Repository.
package opname_repo

import (
	"context"
	"slices"

	"github.com/Masterminds/squirrel"

	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	sessionsTable = "opname_sessions"
	itemsTable    = "opname_items"
)

var (
	sessionCols = postgres.ExtractDBColumns[opname.Session]()
	itemCols    = postgres.ExtractDBColumns[opname.Item]()
	// difference is a generated column.
	itemInsertCols = slices.DeleteFunc(slices.Clone(itemCols), func(c string) bool { return c == "difference" })
)

var _ opname.Repository = (*Repo)(nil)

// Repo implements opname.Repository. Every method runs on the transaction
// carried by ctx, or on the pool outside one.
type Repo struct {
	txm *postgres.TxManager
}

// New creates the repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// insertMap keeps only cols from the struct's db-tagged values.
func insertMap(v any, cols []string) map[string]any {
	data := postgres.StructToMap(v)
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		if val, ok := data[c]; ok {
			out[c] = val
		}
	}
	return out
}
