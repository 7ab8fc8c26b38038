package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corefirst/authstore/internal/storageerr"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestManagerDo_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO t`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		_, err := uow.ExecContext(ctx, `INSERT INTO t(v) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerDo_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	_ = m.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		panic("kaput")
	})
}

func TestManagerDo_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := m.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		return nil
	})
	require.Error(t, err)
}

func TestManagerBegin_AppliesLockTimeout(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 3*time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout = '3000ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	uow, err := m.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerBegin_SetupFailureReleasesConnection(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`SET LOCAL lock_timeout`).WillReturnError(errors.New("broken"))
	mock.ExpectRollback()

	_, err := m.Begin(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_RollbackAfterCommitIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	mock.ExpectBegin()
	mock.ExpectCommit()

	uow, err := m.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	require.NoError(t, uow.Rollback())
	require.NoError(t, uow.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerDo_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("domain failure")
	err := m.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoWithRetry_RetriesLockTimeoutOnly(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	// first attempt hits a lock timeout, second succeeds
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err := m.DoWithRetry(context.Background(), 3, func(ctx context.Context, uow *UnitOfWork) error {
		attempts++
		if attempts == 1 {
			return storageerr.ErrLockTimeout
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDoWithRetry_ConflictIsFinal(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewManager(db, 0)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := m.DoWithRetry(context.Background(), 3, func(ctx context.Context, uow *UnitOfWork) error {
		attempts++
		return storageerr.ErrConflict
	})
	assert.ErrorIs(t, err, storageerr.ErrConflict)
	assert.Equal(t, 1, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}
