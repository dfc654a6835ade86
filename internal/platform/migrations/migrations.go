// Package migrations applies the embedded schema with golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	platformdb "github.com/R3E-Network/classledger/internal/platform/database"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var files embed.FS

// Apply migrates the database to the latest version. The migrator runs on
// its own connection because closing it closes the underlying handle.
func Apply(ctx context.Context, driver, dsn string) error {
	m, err := open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Rollback reverts steps migrations. steps <= 0 reverts everything.
func Rollback(ctx context.Context, driver, dsn string, steps int) error {
	m, err := open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if steps <= 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

// Version reports the applied schema version. A fresh database returns 0.
func Version(ctx context.Context, driver, dsn string) (uint, bool, error) {
	m, err := open(ctx, driver, dsn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func open(ctx context.Context, driver, dsn string) (*migrate.Migrate, error) {
	normalized, err := platformdb.NormalizeDSN(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, normalized)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	var target database.Driver
	switch driver {
	case platformdb.DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case platformdb.DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	source, err := iofs.New(files, "sql/"+driver)
	if err != nil {
		target.Close()
		return nil, err
	}
	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		source.Close()
		target.Close()
		return nil, err
	}
	return m, nil
}
