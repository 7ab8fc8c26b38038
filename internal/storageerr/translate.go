package storageerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the translator recognizes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeLockNotAvailable    = "55P03"
	codeDeadlockDetected    = "40P01"
)

// Translate reclassifies a backend failure into one of the storage error
// kinds. Unrecognized failures are returned wrapped but untranslated; they
// abort the unit of work and propagate to the caller unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return NewConflict(pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: constraint %s", ErrUnknownParent, pgErr.ConstraintName)
		case codeLockNotAvailable, codeDeadlockDetected:
			return ErrLockTimeout
		}
	}
	return fmt.Errorf("db error: %w", err)
}
