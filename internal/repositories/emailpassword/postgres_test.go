package emailpassword

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/corefirst/authstore/internal/catalog"
	"github.com/corefirst/authstore/internal/models"
	"github.com/corefirst/authstore/internal/storageerr"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db, catalog.Catalog{}), mock, db
}

func TestSignUp_InsertsIndexAndRecipeRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+all_auth_recipe_users`).
		WithArgs("u-1", models.RecipeEmailPassword, int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+emailpassword_users`).
		WithArgs("u-1", "a@b.c", "hash", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	repo := NewPostgresRepository(tx, catalog.Catalog{})

	err = repo.SignUp(context.Background(), models.EmailPasswordUser{
		UserID: "u-1", Email: "a@b.c", PasswordHash: "hash", TimeJoined: 100,
	})
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSignUp_DuplicateEmailIsConflictWithConstraint(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+all_auth_recipe_users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+emailpassword_users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "emailpassword_users_email_key"})

	err := repo.SignUp(context.Background(), models.EmailPasswordUser{
		UserID: "u-2", Email: "a@b.c", PasswordHash: "hash", TimeJoined: 101,
	})
	if !errors.Is(err, storageerr.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	var conflict *storageerr.ConflictError
	if !errors.As(err, &conflict) || conflict.Constraint != "emailpassword_users_email_key" {
		t.Fatalf("want tagged constraint, got %v", err)
	}
}

func TestGetUserByID_RoundTrip(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "email", "password_hash", "time_joined"}).
		AddRow("u-1", "a@b.c", "hash", int64(100))
	mock.ExpectQuery(`(?s)SELECT\s+user_id,\s*email,\s*password_hash,\s*time_joined\s+FROM\s+emailpassword_users\s+WHERE\s+user_id\s+=\s+\$1\s*$`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.GetUserByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	want := models.EmailPasswordUser{UserID: "u-1", Email: "a@b.c", PasswordHash: "hash", TimeJoined: 100}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestGetUserByIDForUpdate_EmitsRowLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "email", "password_hash", "time_joined"}).
		AddRow("u-1", "a@b.c", "hash", int64(100))
	mock.ExpectQuery(`WHERE\s+user_id\s+=\s+\$1\s+FOR\s+UPDATE`).
		WithArgs("u-1").
		WillReturnRows(rows)

	if _, err := repo.GetUserByIDForUpdate(context.Background(), "u-1"); err != nil {
		t.Fatalf("GetUserByIDForUpdate error: %v", err)
	}
}

func TestGetResetTokenForUpdate_LockTimeout(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+emailpassword_pswd_reset_tokens\s+WHERE\s+user_id\s+=\s+\$1\s+AND\s+token\s+=\s+\$2\s+FOR\s+UPDATE`).
		WithArgs("u-1", "tok").
		WillReturnError(&pgconn.PgError{Code: "55P03"})

	_, err := repo.GetResetTokenForUpdate(context.Background(),
		models.PasswordResetTokenKey{UserID: "u-1", Token: "tok"})
	if !errors.Is(err, storageerr.ErrLockTimeout) {
		t.Fatalf("want ErrLockTimeout, got %v", err)
	}
}

func TestAddResetToken_UnknownUserIsUnknownParent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+emailpassword_pswd_reset_tokens`).
		WithArgs("ghost", "tok", int64(500)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "emailpassword_pswd_reset_tokens_user_id_fkey"})

	err := repo.AddResetToken(context.Background(), models.PasswordResetToken{
		UserID: "ghost", Token: "tok", TokenExpiry: 500,
	})
	if !errors.Is(err, storageerr.ErrUnknownParent) {
		t.Fatalf("want ErrUnknownParent, got %v", err)
	}
}

func TestUpdatePasswordHash_MissingIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+emailpassword_users\s+SET\s+password_hash`).
		WithArgs("newhash", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), "ghost", "newhash")
	if !errors.Is(err, storageerr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteResetToken_ConsumedElsewhereIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+emailpassword_pswd_reset_tokens`).
		WithArgs("u-1", "tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteResetToken(context.Background(),
		models.PasswordResetTokenKey{UserID: "u-1", Token: "tok"})
	if !errors.Is(err, storageerr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteExpiredResetTokens_ReturnsCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+emailpassword_pswd_reset_tokens\s+WHERE\s+token_expiry\s+<\s+\$1`).
		WithArgs(int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredResetTokens(context.Background(), 1000)
	if err != nil {
		t.Fatalf("DeleteExpiredResetTokens error: %v", err)
	}
	if n != 3 {
		t.Fatalf("unexpected count: %d", n)
	}
}

func TestDeleteUser_RemovesRecipeAndIndexRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+emailpassword_users`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+all_auth_recipe_users`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteUser error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
