package storageerr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_Nil(t *testing.T) {
	assert.NoError(t, Translate(nil))
}

func TestTranslate_NoRows(t *testing.T) {
	err := Translate(fmt.Errorf("scan: %w", sql.ErrNoRows))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranslate_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "emailpassword_users_email_key"}
	err := Translate(pgErr)

	assert.ErrorIs(t, err, ErrConflict)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "emailpassword_users_email_key", conflict.Constraint)
}

func TestTranslate_ForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "passwordless_codes_device_id_hash_fkey"}
	assert.ErrorIs(t, Translate(pgErr), ErrUnknownParent)
}

func TestTranslate_LockNotAvailable(t *testing.T) {
	assert.ErrorIs(t, Translate(&pgconn.PgError{Code: "55P03"}), ErrLockTimeout)
}

func TestTranslate_DeadlockDetected(t *testing.T) {
	assert.ErrorIs(t, Translate(&pgconn.PgError{Code: "40P01"}), ErrLockTimeout)
}

func TestTranslate_UnrecognizedPassesThrough(t *testing.T) {
	cause := errors.New("connection refused")
	err := Translate(cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}

func TestConflictError_Message(t *testing.T) {
	assert.Equal(t, "already exists: constraint roles_pkey", NewConflict("roles_pkey").Error())
	assert.Equal(t, "already exists", (&ConflictError{}).Error())
}
