package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"backoffice/db"
	"backoffice/pkg/logger"
)

// MigrateDirection selects up or down migrations.
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// MigrationURL rewrites a postgres:// DSN to the pgx5:// scheme of the migrate driver.
func MigrationURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Migrate applies the embedded schema migrations. steps limits a down
// migration; zero means all the way.
func Migrate(ctx context.Context, dsn string, dir MigrateDirection, steps int) error {
	src, err := iofs.New(db.Migrations, db.MigrationsDir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(dsn))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "close migrate", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	switch {
	case dir == MigrateUp:
		err = m.Up()
	case dir == MigrateDown && steps > 0:
		err = m.Steps(-steps)
	case dir == MigrateDown:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migrate direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info(ctx, "schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logger.Info(ctx, "migrations applied", "direction", dir, "version", version, "dirty", dirty)
	}
	return nil
}
