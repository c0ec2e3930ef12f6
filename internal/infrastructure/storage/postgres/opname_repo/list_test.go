package opname_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/domain/opname"
)

func TestListQueries_Filters(t *testing.T) {
	status := opname.StatusSubmit
	branch := id.New()
	f := opname.ListFilter{Status: &status, BranchID: &branch}
	require.NoError(t, f.Normalize())

	page, count, err := listQueries(f)
	require.NoError(t, err)

	sql, args, err := count.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM opname_sessions s WHERE s.status = $1 AND s.branch_id = $2", sql)
	// squirrel.Eq resolves driver.Valuer, so UUIDs bind as strings.
	assert.Equal(t, []any{opname.StatusSubmit, branch.String()}, args)

	sql, args, err = page.ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "SELECT s.id, s.code, s.branch_id, s.status,"), sql)
	assert.Contains(t, sql, "FROM opname_sessions s LEFT JOIN opname_items i ON i.session_id = s.id")
	assert.Contains(t, sql, "AS total_adjustment_value")
	assert.True(t, strings.HasSuffix(sql,
		"WHERE s.status = $1 AND s.branch_id = $2 GROUP BY s.id ORDER BY s.created_at DESC, s.id DESC LIMIT 10 OFFSET 0"), sql)
	assert.Len(t, args, 2)
}

func TestListQueries_SearchAndDates(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	f := opname.ListFilter{Search: "50%_off", DateFrom: &from, DateTo: &to}
	require.NoError(t, f.Normalize())

	_, count, err := listQueries(f)
	require.NoError(t, err)

	sql, args, err := count.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) FROM opname_sessions s WHERE (s.code ILIKE $1 OR s.notes ILIKE $2) AND s.created_at >= $3 AND s.created_at <= $4",
		sql)
	assert.Equal(t, []any{`%50\%\_off%`, `%50\%\_off%`, from, to}, args)
}

func TestListQueries_OrderAndPage(t *testing.T) {
	f := opname.ListFilter{OrderBy: "submitted_at", Page: 3, PerPage: 25}
	require.NoError(t, f.Normalize())

	page, _, err := listQueries(f)
	require.NoError(t, err)

	sql, _, err := page.ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "GROUP BY s.id ORDER BY s.submitted_at ASC, s.id ASC LIMIT 25 OFFSET 50"), sql)
}

func TestListQueries_RejectsUnknownOrder(t *testing.T) {
	_, _, err := listQueries(opname.ListFilter{OrderBy: "notes", Page: 1, PerPage: 10})
	assert.Error(t, err)
}
