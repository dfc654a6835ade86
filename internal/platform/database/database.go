// Package database opens the relational store behind the application. Two
// drivers are supported: PostgreSQL through lib/pq and SQLite through the
// pure Go modernc driver.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures the connection pool.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects and pings the database.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	if opts.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}
	dsn, err := NormalizeDSN(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(opts.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if opts.Driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}
	return db, nil
}

// NormalizeDSN adds the pragmas the SQLite store relies on. Postgres DSNs
// are returned unchanged.
func NormalizeDSN(driver, dsn string) (string, error) {
	switch driver {
	case DriverPostgres:
		return dsn, nil
	case DriverSQLite:
		params := []string{}
		if !strings.Contains(dsn, "foreign_keys") {
			params = append(params, "_pragma=foreign_keys(1)")
		}
		if !strings.Contains(dsn, "busy_timeout") {
			params = append(params, "_pragma=busy_timeout(5000)")
		}
		if !strings.Contains(dsn, "_time_format") {
			params = append(params, "_time_format=sqlite")
		}
		if len(params) == 0 {
			return dsn, nil
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + strings.Join(params, "&"), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
