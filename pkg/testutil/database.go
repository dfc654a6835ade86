// Package testutil provides test helpers shared across packages.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/classledger/internal/app/storage/sqlstore"
	"github.com/R3E-Network/classledger/internal/platform/database"
	"github.com/R3E-Network/classledger/internal/platform/migrations"
)

// NewSQLiteDB returns a migrated SQLite database in a temp dir. It is closed
// when the test ends.
func NewSQLiteDB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "test.db")

	if err := migrations.Apply(ctx, database.DriverSQLite, dsn); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	db, err := database.Open(ctx, database.Options{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewStore returns a sqlstore over a fresh migrated database.
func NewStore(t testing.TB) *sqlstore.Store {
	t.Helper()
	return sqlstore.New(NewSQLiteDB(t))
}
