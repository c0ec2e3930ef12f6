package postgres

import (
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/db"
)

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/bo?sslmode=disable", MigrationURL("postgres://u:p@localhost:5432/bo?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/bo", MigrationURL("postgresql://localhost/bo"))
	assert.Equal(t, "pgx5://localhost/bo", MigrationURL("pgx5://localhost/bo"))
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(db.Migrations, db.MigrationsDir+"/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 8, "every up migration has a down")

	src, err := iofs.New(db.Migrations, db.MigrationsDir)
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
}
