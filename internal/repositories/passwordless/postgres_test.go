package passwordless

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

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestCreateUser_EmailTakenIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+all_auth_recipe_users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+passwordless_users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "passwordless_users_email_key"})

	err := repo.CreateUser(context.Background(), models.PasswordlessUser{
		UserID: "u-1", Email: nullStr("a@b.c"), TimeJoined: 100,
	})
	if !errors.Is(err, storageerr.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	var conflict *storageerr.ConflictError
	if !errors.As(err, &conflict) || conflict.Constraint != "passwordless_users_email_key" {
		t.Fatalf("want tagged constraint, got %v", err)
	}
}

func TestGetUserByPhoneNumber_RoundTrip(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "email", "phone_number", "time_joined"}).
		AddRow("u-1", nil, "+15551234", int64(100))
	mock.ExpectQuery(`FROM\s+passwordless_users\s+WHERE\s+phone_number\s+=\s+\$1`).
		WithArgs("+15551234").
		WillReturnRows(rows)

	got, err := repo.GetUserByPhoneNumber(context.Background(), "+15551234")
	if err != nil {
		t.Fatalf("GetUserByPhoneNumber error: %v", err)
	}
	if got.UserID != "u-1" || got.Email.Valid || got.PhoneNumber.String != "+15551234" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestUpdateEmail_ClearsWithNil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+passwordless_users\s+SET\s+email\s+=\s+\$1`).
		WithArgs(sql.NullString{}, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateEmail(context.Background(), "u-1", nil); err != nil {
		t.Fatalf("UpdateEmail error: %v", err)
	}
}

func TestUpdatePhoneNumber_MissingIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+passwordless_users\s+SET\s+phone_number`).
		WithArgs(nullStr("+15550000"), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePhoneNumber(context.Background(), "ghost", strPtr("+15550000"))
	if !errors.Is(err, storageerr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func strPtr(s string) *string { return &s }

func TestCreateDeviceWithCode_Atomic(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+passwordless_devices`).
		WithArgs("dev-hash", nullStr("a@b.c"), sql.NullString{}, "salt", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+passwordless_codes`).
		WithArgs("code-1", "dev-hash", "link-hash", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateDeviceWithCode(context.Background(),
		models.PasswordlessDevice{DeviceIDHash: "dev-hash", Email: nullStr("a@b.c"), LinkCodeSalt: "salt"},
		models.PasswordlessCode{CodeID: "code-1", DeviceIDHash: "dev-hash", LinkCodeHash: "link-hash", CreatedAt: 100},
	)
	if err != nil {
		t.Fatalf("CreateDeviceWithCode error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDeviceForUpdate_EmitsRowLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"device_id_hash", "email", "phone_number", "link_code_salt", "failed_attempts"}).
		AddRow("dev-hash", "a@b.c", nil, "salt", 2)
	mock.ExpectQuery(`WHERE\s+device_id_hash\s+=\s+\$1\s+FOR\s+UPDATE`).
		WithArgs("dev-hash").
		WillReturnRows(rows)

	got, err := repo.GetDeviceForUpdate(context.Background(), "dev-hash")
	if err != nil {
		t.Fatalf("GetDeviceForUpdate error: %v", err)
	}
	if got.FailedAttempts != 2 {
		t.Fatalf("unexpected device: %+v", got)
	}
}

func TestIncrementFailedAttempts_ReturnsNewValue(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE\s+passwordless_devices\s+SET\s+failed_attempts\s+=\s+failed_attempts\s+\+\s+1.*RETURNING\s+failed_attempts`).
		WithArgs("dev-hash").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts"}).AddRow(3))

	attempts, err := repo.IncrementFailedAttempts(context.Background(), "dev-hash")
	if err != nil {
		t.Fatalf("IncrementFailedAttempts error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("unexpected attempts: %d", attempts)
	}
}

func TestIncrementFailedAttempts_MissingDeviceIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+passwordless_devices`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementFailedAttempts(context.Background(), "ghost")
	if !errors.Is(err, storageerr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateCode_UnknownDeviceIsUnknownParent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+passwordless_codes`).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "passwordless_codes_device_id_hash_fkey"})

	err := repo.CreateCode(context.Background(), models.PasswordlessCode{
		CodeID: "code-1", DeviceIDHash: "ghost", LinkCodeHash: "h", CreatedAt: 100,
	})
	if !errors.Is(err, storageerr.ErrUnknownParent) {
		t.Fatalf("want ErrUnknownParent, got %v", err)
	}
}

func TestDeleteDevice_CascadesCodesViaSchema(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// single statement: codes are removed by the ON DELETE CASCADE constraint
	mock.ExpectExec(`DELETE\s+FROM\s+passwordless_devices\s+WHERE\s+device_id_hash\s+=\s+\$1`).
		WithArgs("dev-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteDevice(context.Background(), "dev-hash"); err != nil {
		t.Fatalf("DeleteDevice error: %v", err)
	}

	mock.ExpectQuery(`FROM\s+passwordless_codes\s+WHERE\s+code_id\s+=\s+\$1`).
		WithArgs("code-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetCode(context.Background(), "code-1")
	if !errors.Is(err, storageerr.ErrNotFound) {
		t.Fatalf("want ErrNotFound after cascade, got %v", err)
	}
}

func TestDeleteCodesCreatedBefore_ReturnsCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+passwordless_codes\s+WHERE\s+created_at\s+<\s+\$1`).
		WithArgs(int64(900)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteCodesCreatedBefore(context.Background(), 900)
	if err != nil {
		t.Fatalf("DeleteCodesCreatedBefore error: %v", err)
	}
	if n != 4 {
		t.Fatalf("unexpected count: %d", n)
	}
}

func TestGetCodesByDevice_EmptyIsValid(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+passwordless_codes\s+WHERE\s+device_id_hash\s+=\s+\$1`).
		WithArgs("dev-hash").
		WillReturnRows(sqlmock.NewRows([]string{"code_id", "device_id_hash", "link_code_hash", "created_at"}))

	got, err := repo.GetCodesByDevice(context.Background(), "dev-hash")
	if err != nil {
		t.Fatalf("GetCodesByDevice error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
}
