package storage

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect hides the differences between the supported databases.
type Dialect interface {
	// Name is the value accepted in configuration ("sqlite3", "postgres").
	Name() string

	// DriverName is the database/sql driver the dialect opens.
	DriverName() string

	PlaceholderFormat() sq.PlaceholderFormat

	// Schema returns the DDL applied by Migrate.
	Schema() string

	// InsertIgnore returns the INSERT suffix that skips rows conflicting on
	// the given unique columns.
	InsertIgnore(conflictCols ...string) string

	// configure tunes the pool and connection right after it is opened.
	configure(db *sqlx.DB) error
}

var (
	SQLite   = SQLiteDialect{}
	Postgres = PostgresDialect{}
)

// LookupDialect maps a configured driver name to its dialect.
func LookupDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", name)
	}
}

type SQLiteDialect struct{}

func (SQLiteDialect) Name() string       { return "sqlite3" }
func (SQLiteDialect) DriverName() string { return "sqlite3" }
func (SQLiteDialect) Schema() string     { return sqliteSchema }

func (SQLiteDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

func (SQLiteDialect) InsertIgnore(conflictCols ...string) string {
	return onConflictDoNothing(conflictCols)
}

func (SQLiteDialect) configure(db *sqlx.DB) error {
	// SQLite allows a single writer; one connection keeps transactions
	// serialized instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

type PostgresDialect struct{}

func (PostgresDialect) Name() string       { return "postgres" }
func (PostgresDialect) DriverName() string { return "pgx" }
func (PostgresDialect) Schema() string     { return postgresSchema }

func (PostgresDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Dollar
}

func (PostgresDialect) InsertIgnore(conflictCols ...string) string {
	return onConflictDoNothing(conflictCols)
}

func (PostgresDialect) configure(db *sqlx.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return nil
}

func onConflictDoNothing(conflictCols []string) string {
	if len(conflictCols) == 0 {
		return "ON CONFLICT DO NOTHING"
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(conflictCols, ", "))
}
