package storage

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Session runs statements either directly on the pool or inside the
// transaction it was started for.
type Session struct {
	db       *sqlx.DB
	executor Executor
	dialect  Dialect
	obs      *ObservabilityConfig
}

func NewSession(db *sqlx.DB, dialect Dialect, opts ...SessionOption) *Session {
	s := &Session{
		db:       db,
		executor: db,
		dialect:  dialect,
		obs:      defaultObservabilityConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Dialect() Dialect {
	return s.dialect
}

// Builder returns a squirrel statement builder using the dialect's
// placeholder format.
func (s *Session) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(s.dialect.PlaceholderFormat())
}

func (s *Session) Exec(ctx context.Context, operation, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := s.observe(ctx, operation, query, func(ctx context.Context) error {
		var err error
		res, err = s.executor.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func (s *Session) Get(ctx context.Context, operation string, dest any, query string, args ...any) error {
	return s.observe(ctx, operation, query, func(ctx context.Context) error {
		return s.executor.GetContext(ctx, dest, query, args...)
	})
}

func (s *Session) Select(ctx context.Context, operation string, dest any, query string, args ...any) error {
	return s.observe(ctx, operation, query, func(ctx context.Context) error {
		return s.executor.SelectContext(ctx, dest, query, args...)
	})
}

// ExecBuilder renders b and executes it.
func (s *Session) ExecBuilder(ctx context.Context, operation string, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx, operation, query, args...)
}

func (s *Session) GetBuilder(ctx context.Context, operation string, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return s.Get(ctx, operation, dest, query, args...)
}

func (s *Session) SelectBuilder(ctx context.Context, operation string, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return s.Select(ctx, operation, dest, query, args...)
}

func (s *Session) InTransaction() bool {
	_, ok := s.executor.(*sqlx.Tx)
	return ok
}

func (s *Session) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Session{
		db:       s.db,
		executor: tx,
		dialect:  s.dialect,
		obs:      s.obs,
	}, nil
}

func (s *Session) Commit() error {
	if tx, ok := s.executor.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return sql.ErrTxDone
}

func (s *Session) Rollback() error {
	if tx, ok := s.executor.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return sql.ErrTxDone
}

// Transaction runs fn inside a transaction. The transaction is rolled back
// when fn returns an error or panics and committed otherwise. Nested calls
// reuse the outer transaction.
func (s *Session) Transaction(ctx context.Context, fn func(tx *Session) error) (err error) {
	if s.InTransaction() {
		return fn(s)
	}

	txSession, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txSession.Rollback()
			panic(p)
		} else if err != nil {
			_ = txSession.Rollback()
		}
	}()

	err = fn(txSession)
	if err != nil {
		return err
	}

	return txSession.Commit()
}

func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool. Transaction sessions share the pool and
// must not be closed.
func (s *Session) Close() error {
	if s.InTransaction() {
		return sql.ErrTxDone
	}
	return s.db.Close()
}
