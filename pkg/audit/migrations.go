package audit

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationsFS embeds the versioned audit_logs schema, one dialect-specific
// migration set per driver golang-migrate has a database.Driver for in this
// module's go.mod (postgres, mysql). sqlite has no such driver wired here —
// see runVersionedMigrations.
//
//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// runVersionedMigrations applies the embedded golang-migrate migration set
// matching dialect to sqlDB, creating audit_logs (and recording its schema
// version) if it does not already exist. It is a no-op, returning
// errNoDialectDriver, for any dialect without a migrate database.Driver in
// this module's dependency set.
func runVersionedMigrations(dialect string, sqlDB *sql.DB) error {
	var (
		driver database.Driver
		err    error
	)

	switch dialect {
	case "postgres":
		driver, err = migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	case "mysql":
		driver, err = migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	default:
		return errNoDialectDriver
	}
	if err != nil {
		return fmt.Errorf("audit: build migrate driver for %s: %w", dialect, err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("audit: load embedded migrations for %s: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return fmt.Errorf("audit: build migrator for %s: %w", dialect, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("audit: apply migrations for %s: %w", dialect, err)
	}
	return nil
}

// errNoDialectDriver signals AutoMigrate to fall back to GORM's
// reflection-based AutoMigrate for dialects without an embedded migration
// set (sqlite, the default single-process backend).
var errNoDialectDriver = errors.New("audit: no golang-migrate database driver for this dialect")
