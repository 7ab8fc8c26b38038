// Package passwordless provides the PostgreSQL-backed repository for
// passwordless users, login devices, and one-time codes.
package passwordless

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/corefirst/authstore/internal/catalog"
	"github.com/corefirst/authstore/internal/dbx"
	"github.com/corefirst/authstore/internal/models"
	"github.com/corefirst/authstore/internal/storageerr"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db  dbx.DBTX
	cat catalog.Catalog
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, cat catalog.Catalog) *PostgresRepository {
	return &PostgresRepository{db: db, cat: cat}
}

// CreateUser inserts the all-users index row and the recipe row atomically.
// Must run inside a unit of work. A taken email or phone number fails with
// Conflict tagged with the violated constraint.
func (r *PostgresRepository) CreateUser(ctx context.Context, user models.PasswordlessUser) error {
	indexQuery := fmt.Sprintf(`
		INSERT INTO %s (user_id, recipe_id, time_joined)
		VALUES ($1, $2, $3)
	`, r.cat.Table("all_auth_recipe_users"))

	if _, err := r.db.ExecContext(ctx, indexQuery, user.UserID, models.RecipePasswordless, user.TimeJoined); err != nil {
		return storageerr.Translate(err)
	}

	userQuery := fmt.Sprintf(`
		INSERT INTO %s (user_id, email, phone_number, time_joined)
		VALUES ($1, $2, $3, $4)
	`, r.cat.Table("passwordless_users"))

	if _, err := r.db.ExecContext(ctx, userQuery, user.UserID, user.Email, user.PhoneNumber, user.TimeJoined); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) getUser(ctx context.Context, column, value string) (models.PasswordlessUser, error) {
	query := fmt.Sprintf(`
		SELECT user_id, email, phone_number, time_joined FROM %s
		WHERE %s = $1
	`, r.cat.Table("passwordless_users"), column)

	var user models.PasswordlessUser
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&user.UserID, &user.Email, &user.PhoneNumber, &user.TimeJoined)
	if err != nil {
		return models.PasswordlessUser{}, storageerr.Translate(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, userID string) (models.PasswordlessUser, error) {
	return r.getUser(ctx, "user_id", userID)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (models.PasswordlessUser, error) {
	return r.getUser(ctx, "email", email)
}

func (r *PostgresRepository) GetUserByPhoneNumber(ctx context.Context, phoneNumber string) (models.PasswordlessUser, error) {
	return r.getUser(ctx, "phone_number", phoneNumber)
}

func (r *PostgresRepository) updateContact(ctx context.Context, column, userID string, value *string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1
		WHERE user_id = $2
	`, r.cat.Table("passwordless_users"), column)

	var arg sql.NullString
	if value != nil {
		arg = sql.NullString{String: *value, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, arg, userID)
	if err != nil {
		return storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return storageerr.ErrNotFound
	}
	return nil
}

// UpdateEmail sets or clears (nil) the email. Fails with NotFound when the
// user is absent, Conflict when the email is taken.
func (r *PostgresRepository) UpdateEmail(ctx context.Context, userID string, email *string) error {
	return r.updateContact(ctx, "email", userID, email)
}

// UpdatePhoneNumber sets or clears (nil) the phone number.
func (r *PostgresRepository) UpdatePhoneNumber(ctx context.Context, userID string, phoneNumber *string) error {
	return r.updateContact(ctx, "phone_number", userID, phoneNumber)
}

// DeleteUser removes the recipe row and the all-users index row. Must run
// inside a unit of work.
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID string) error {
	userQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("passwordless_users"))

	res, err := r.db.ExecContext(ctx, userQuery, userID)
	if err != nil {
		return storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return storageerr.ErrNotFound
	}

	indexQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("all_auth_recipe_users"))

	if _, err := r.db.ExecContext(ctx, indexQuery, userID); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

// CreateDeviceWithCode inserts a device and its first code atomically. Must
// run inside a unit of work.
func (r *PostgresRepository) CreateDeviceWithCode(ctx context.Context, device models.PasswordlessDevice, code models.PasswordlessCode) error {
	deviceQuery := fmt.Sprintf(`
		INSERT INTO %s (device_id_hash, email, phone_number, link_code_salt, failed_attempts)
		VALUES ($1, $2, $3, $4, $5)
	`, r.cat.Table("passwordless_devices"))

	_, err := r.db.ExecContext(ctx, deviceQuery,
		device.DeviceIDHash, device.Email, device.PhoneNumber, device.LinkCodeSalt, device.FailedAttempts)
	if err != nil {
		return storageerr.Translate(err)
	}

	return r.CreateCode(ctx, code)
}

func (r *PostgresRepository) getDevice(ctx context.Context, deviceIDHash, lock string) (models.PasswordlessDevice, error) {
	query := fmt.Sprintf(`
		SELECT device_id_hash, email, phone_number, link_code_salt, failed_attempts FROM %s
		WHERE device_id_hash = $1%s
	`, r.cat.Table("passwordless_devices"), lock)

	var device models.PasswordlessDevice
	err := r.db.QueryRowContext(ctx, query, deviceIDHash).
		Scan(&device.DeviceIDHash, &device.Email, &device.PhoneNumber, &device.LinkCodeSalt, &device.FailedAttempts)
	if err != nil {
		return models.PasswordlessDevice{}, storageerr.Translate(err)
	}
	return device, nil
}

// GetDevice is a plain read, safe outside a unit of work.
func (r *PostgresRepository) GetDevice(ctx context.Context, deviceIDHash string) (models.PasswordlessDevice, error) {
	return r.getDevice(ctx, deviceIDHash, "")
}

// GetDeviceForUpdate locks the device row, e.g. before checking a code
// attempt. Must run inside a unit of work.
func (r *PostgresRepository) GetDeviceForUpdate(ctx context.Context, deviceIDHash string) (models.PasswordlessDevice, error) {
	return r.getDevice(ctx, deviceIDHash, " FOR UPDATE")
}

func (r *PostgresRepository) listDevices(ctx context.Context, column, value string) ([]models.PasswordlessDevice, error) {
	query := fmt.Sprintf(`
		SELECT device_id_hash, email, phone_number, link_code_salt, failed_attempts FROM %s
		WHERE %s = $1
	`, r.cat.Table("passwordless_devices"), column)

	rows, err := r.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.PasswordlessDevice
	for rows.Next() {
		var device models.PasswordlessDevice
		if err := rows.Scan(&device.DeviceIDHash, &device.Email, &device.PhoneNumber, &device.LinkCodeSalt, &device.FailedAttempts); err != nil {
			return nil, err
		}
		result = append(result, device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetDevicesByEmail(ctx context.Context, email string) ([]models.PasswordlessDevice, error) {
	return r.listDevices(ctx, "email", email)
}

func (r *PostgresRepository) GetDevicesByPhoneNumber(ctx context.Context, phoneNumber string) ([]models.PasswordlessDevice, error) {
	return r.listDevices(ctx, "phone_number", phoneNumber)
}

// IncrementFailedAttempts bumps the device's failed-attempt counter and
// returns the new value. Callers lock the device first (GetDeviceForUpdate)
// so concurrent attempts serialize; must run inside that same unit of work.
func (r *PostgresRepository) IncrementFailedAttempts(ctx context.Context, deviceIDHash string) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET failed_attempts = failed_attempts + 1
		WHERE device_id_hash = $1
		RETURNING failed_attempts
	`, r.cat.Table("passwordless_devices"))

	var attempts int
	if err := r.db.QueryRowContext(ctx, query, deviceIDHash).Scan(&attempts); err != nil {
		return 0, storageerr.Translate(err)
	}
	return attempts, nil
}

// DeleteDevice removes the device; its codes cascade within the same
// transaction. Fails with NotFound when the device is absent.
func (r *PostgresRepository) DeleteDevice(ctx context.Context, deviceIDHash string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE device_id_hash = $1
	`, r.cat.Table("passwordless_devices"))

	res, err := r.db.ExecContext(ctx, query, deviceIDHash)
	if err != nil {
		return storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return storageerr.ErrNotFound
	}
	return nil
}

// CreateCode fails with UnknownParent when the device is absent and
// Conflict when the code id or link-code hash is already present.
func (r *PostgresRepository) CreateCode(ctx context.Context, code models.PasswordlessCode) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (code_id, device_id_hash, link_code_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.cat.Table("passwordless_codes"))

	_, err := r.db.ExecContext(ctx, query, code.CodeID, code.DeviceIDHash, code.LinkCodeHash, code.CreatedAt)
	if err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) getCode(ctx context.Context, column, value string) (models.PasswordlessCode, error) {
	query := fmt.Sprintf(`
		SELECT code_id, device_id_hash, link_code_hash, created_at FROM %s
		WHERE %s = $1
	`, r.cat.Table("passwordless_codes"), column)

	var code models.PasswordlessCode
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&code.CodeID, &code.DeviceIDHash, &code.LinkCodeHash, &code.CreatedAt)
	if err != nil {
		return models.PasswordlessCode{}, storageerr.Translate(err)
	}
	return code, nil
}

func (r *PostgresRepository) GetCode(ctx context.Context, codeID string) (models.PasswordlessCode, error) {
	return r.getCode(ctx, "code_id", codeID)
}

func (r *PostgresRepository) GetCodeByLinkCodeHash(ctx context.Context, linkCodeHash string) (models.PasswordlessCode, error) {
	return r.getCode(ctx, "link_code_hash", linkCodeHash)
}

// GetCodesByDevice returns all active codes for a device.
func (r *PostgresRepository) GetCodesByDevice(ctx context.Context, deviceIDHash string) ([]models.PasswordlessCode, error) {
	query := fmt.Sprintf(`
		SELECT code_id, device_id_hash, link_code_hash, created_at FROM %s
		WHERE device_id_hash = $1
	`, r.cat.Table("passwordless_codes"))

	rows, err := r.db.QueryContext(ctx, query, deviceIDHash)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.PasswordlessCode
	for rows.Next() {
		var code models.PasswordlessCode
		if err := rows.Scan(&code.CodeID, &code.DeviceIDHash, &code.LinkCodeHash, &code.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteCode fails with NotFound when the code is absent.
func (r *PostgresRepository) DeleteCode(ctx context.Context, codeID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE code_id = $1
	`, r.cat.Table("passwordless_codes"))

	res, err := r.db.ExecContext(ctx, query, codeID)
	if err != nil {
		return storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return storageerr.ErrNotFound
	}
	return nil
}

// DeleteCodesCreatedBefore sweeps stale codes and returns how many were
// removed. Zero is not an error.
func (r *PostgresRepository) DeleteCodesCreatedBefore(ctx context.Context, createdBefore int64) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE created_at < $1
	`, r.cat.Table("passwordless_codes"))

	res, err := r.db.ExecContext(ctx, query, createdBefore)
	if err != nil {
		return 0, storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
