// Package storage opens the feed database and exposes a Session that runs
// statements on the pool or inside a transaction.
//
// SQLite is the default backend; PostgreSQL is available through the pgx
// stdlib driver. Both share the same table layout.
package storage

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

//go:embed schema/postgres.sql
var postgresSchema string

// Schema version tracking (SQLite user_version):
// 1 - posts, comments, likes with unique (post_id, user_name) likes
const SchemaVersion = 1

// Open connects to the database described by driver and dsn and configures
// the pool for the dialect. It does not create tables; call Migrate.
func Open(ctx context.Context, driver, dsn string, opts ...SessionOption) (*Session, error) {
	dialect, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := dialect.configure(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	return NewSession(db, dialect, opts...), nil
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *Session) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(s.dialect.Schema()) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if _, ok := s.dialect.(SQLiteDialect); ok {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Version reports the applied schema version. PostgreSQL carries no version
// marker, so the compiled-in version is returned once the posts table exists.
func (s *Session) Version(ctx context.Context) (int, error) {
	if _, ok := s.dialect.(SQLiteDialect); ok {
		var version int
		if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
			return 0, fmt.Errorf("get user_version: %w", err)
		}
		return version, nil
	}

	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'posts')`)
	if err != nil {
		return 0, fmt.Errorf("inspect schema: %w", err)
	}
	if !exists {
		return 0, nil
	}
	return SchemaVersion, nil
}

func splitStatements(schema string) []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
