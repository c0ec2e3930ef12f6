package opname_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/domain/opname"
	"backoffice/internal/infrastructure/storage/postgres"
)

// Totals are aggregated from items in the same query as the page.
var totalsCols = []string{
	"COUNT(i.id) AS total_items",
	"COALESCE(SUM(GREATEST(i.difference, 0)), 0)::bigint AS total_positive_adjustment",
	"COALESCE(SUM(GREATEST(-i.difference, 0)), 0)::bigint AS total_negative_adjustment",
	"COALESCE(SUM(i.difference * i.unit_cost), 0) AS total_adjustment_value",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// applyFilter adds the WHERE clauses shared by the page and count queries.
func applyFilter(q squirrel.SelectBuilder, f opname.ListFilter) squirrel.SelectBuilder {
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"s.status": *f.Status})
	}
	if f.BranchID != nil {
		q = q.Where(squirrel.Eq{"s.branch_id": *f.BranchID})
	}
	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(f.Search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"s.code": pattern},
			squirrel.ILike{"s.notes": pattern},
		})
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"s.created_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"s.created_at": *f.DateTo})
	}
	return q
}

// listQueries builds the page query and its count query.
func listQueries(f opname.ListFilter) (page, count squirrel.SelectBuilder, err error) {
	field, desc, err := f.Order()
	if err != nil {
		return page, count, err
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	cols := make([]string, 0, len(sessionCols)+len(totalsCols))
	for _, c := range sessionCols {
		cols = append(cols, "s."+c)
	}
	cols = append(cols, totalsCols...)

	page = applyFilter(Builder().
		Select(cols...).
		From(sessionsTable+" s").
		LeftJoin(itemsTable+" i ON i.session_id = s.id"), f).
		GroupBy("s.id").
		OrderBy(fmt.Sprintf("s.%s %s", field, dir), "s.id "+dir).
		Limit(uint64(f.PerPage)).
		Offset(uint64(f.Offset()))

	count = applyFilter(Builder().
		Select("COUNT(*)").
		From(sessionsTable+" s"), f)

	return page, count, nil
}

// List returns one page of session summaries and the number of matches.
func (r *Repo) List(ctx context.Context, f opname.ListFilter) ([]opname.SessionSummary, int64, error) {
	pageQ, countQ, err := listQueries(f)
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, postgres.NewDatabaseError("count "+sessionsTable, err)
	}
	if total == 0 {
		return []opname.SessionSummary{}, 0, nil
	}

	sql, args, err = pageQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	rows := make([]opname.SessionSummary, 0, f.PerPage)
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, 0, postgres.NewDatabaseError("list "+sessionsTable, err)
	}
	return rows, total, nil
}
