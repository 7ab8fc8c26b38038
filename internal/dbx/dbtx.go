// Package dbx provides the DB abstractions shared by repositories: a minimal
// interface (DBTX) implemented by *sql.DB, *sql.Tx and *UnitOfWork, and an
// explicit unit-of-work manager for multi-statement operations.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos. *sql.DB, *sql.Tx and
// *UnitOfWork all satisfy it. Plain reads may run on a bare *sql.DB; locked
// reads and multi-step writes must run on a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
