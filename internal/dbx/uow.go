package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Manager opens units of work against one connection pool. Each unit of work
// owns one connection for its duration; nesting is not supported, so a caller
// needing several steps to be atomic performs them all inside one unit.
type Manager struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewManager constructs a Manager. lockTimeout bounds how long a locked read
// inside a unit of work waits for a contended row; zero keeps the backend's
// default.
func NewManager(db *sql.DB, lockTimeout time.Duration) *Manager {
	return &Manager{db: db, lockTimeout: lockTimeout}
}

// DB returns the underlying pool for plain, non-transactional reads.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Begin acquires a connection and starts a transaction. When a lock timeout
// is configured it is applied with SET LOCAL, so contended locked reads fail
// with SQLSTATE 55P03 instead of waiting forever. On any setup failure the
// transaction is rolled back and the connection released before returning.
func (m *Manager) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	if m.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("set lock_timeout: %w", err)
		}
	}
	return &UnitOfWork{tx: tx}, nil
}

// UnitOfWork is one open transaction. It satisfies DBTX, so repositories can
// be bound to it directly. Exactly one of Commit or Rollback releases the
// connection; further calls are no-ops.
type UnitOfWork struct {
	tx   *sql.Tx
	done bool
}

// Commit makes all writes visible and releases the connection. If the commit
// itself fails the transaction is already rolled back by the backend; the
// connection is released either way.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards all writes and releases the connection. Calling it after
// Commit, or twice, is a no-op, so it is safe to defer unconditionally.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (u *UnitOfWork) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return u.tx.ExecContext(ctx, query, args...)
}

func (u *UnitOfWork) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return u.tx.QueryContext(ctx, query, args...)
}

func (u *UnitOfWork) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return u.tx.QueryRowContext(ctx, query, args...)
}

// Do runs fn inside a fresh unit of work: commit on nil error, rollback on
// error or panic, panic rethrown. The Manager's lock timeout applies.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) (err error) {
	uow, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
		if err != nil {
			_ = uow.Rollback()
			return
		}
		err = uow.Commit()
	}()

	err = fn(ctx, uow)
	return err
}
