package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/auth"
	"backoffice/internal/infrastructure/tabular"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("JWT_ISSUER", "backoffice")
	branch := id.New()

	out, err := run(t, "token", "--user", "rev-1", "--branch", branch.String(), "--perm", auth.PermOpnameReview)
	require.NoError(t, err)

	user, err := auth.NewJWTService(auth.DefaultJWTConfig("cli-test-secret")).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "rev-1", user.UserID)
	assert.Equal(t, branch, user.BranchID)
	assert.True(t, user.HasPermission(auth.PermOpnameReview))
}

func TestTokenCommand_BadBranch(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	_, err := run(t, "token", "--user", "u1", "--branch", "head-office")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--branch")
}

func TestMigrateCommand_Args(t *testing.T) {
	_, err := run(t, "migrate", "sideways")
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "")
	_, err = run(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestExportCommand_UnknownSession(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	_, err := run(t, "export", "--session", id.New().String(), "--format", "csv")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPickFormat(t *testing.T) {
	f, err := pickFormat("", "count.xlsx")
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatXLSX, f)

	f, err = pickFormat("csv", "count.xlsx")
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatCSV, f)

	f, err = pickFormat("", "-")
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatCSV, f)

	_, err = pickFormat("pdf", "-")
	assert.Error(t, err)
}
