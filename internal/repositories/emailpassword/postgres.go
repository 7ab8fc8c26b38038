// Package emailpassword provides the PostgreSQL-backed repository for
// credential-login users and their password-reset tokens.
package emailpassword

import (
	"context"
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

// SignUp inserts the all-users index row and the recipe row atomically.
// Must run inside a unit of work. A duplicate email or user id fails with
// Conflict and leaves neither row persisted.
func (r *PostgresRepository) SignUp(ctx context.Context, user models.EmailPasswordUser) error {
	indexQuery := fmt.Sprintf(`
		INSERT INTO %s (user_id, recipe_id, time_joined)
		VALUES ($1, $2, $3)
	`, r.cat.Table("all_auth_recipe_users"))

	if _, err := r.db.ExecContext(ctx, indexQuery, user.UserID, models.RecipeEmailPassword, user.TimeJoined); err != nil {
		return storageerr.Translate(err)
	}

	userQuery := fmt.Sprintf(`
		INSERT INTO %s (user_id, email, password_hash, time_joined)
		VALUES ($1, $2, $3, $4)
	`, r.cat.Table("emailpassword_users"))

	if _, err := r.db.ExecContext(ctx, userQuery, user.UserID, user.Email, user.PasswordHash, user.TimeJoined); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) getUser(ctx context.Context, column, value, lock string) (models.EmailPasswordUser, error) {
	query := fmt.Sprintf(`
		SELECT user_id, email, password_hash, time_joined FROM %s
		WHERE %s = $1%s
	`, r.cat.Table("emailpassword_users"), column, lock)

	var user models.EmailPasswordUser
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&user.UserID, &user.Email, &user.PasswordHash, &user.TimeJoined)
	if err != nil {
		return models.EmailPasswordUser{}, storageerr.Translate(err)
	}
	return user, nil
}

// GetUserByID is a plain read, safe outside a unit of work.
func (r *PostgresRepository) GetUserByID(ctx context.Context, userID string) (models.EmailPasswordUser, error) {
	return r.getUser(ctx, "user_id", userID, "")
}

// GetUserByIDForUpdate takes an exclusive row lock. Must run inside a unit
// of work; concurrent lockers of the same row block until it ends.
func (r *PostgresRepository) GetUserByIDForUpdate(ctx context.Context, userID string) (models.EmailPasswordUser, error) {
	return r.getUser(ctx, "user_id", userID, " FOR UPDATE")
}

// GetUserByEmail is a plain read against the unique email column.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (models.EmailPasswordUser, error) {
	return r.getUser(ctx, "email", email, "")
}

// UpdatePasswordHash fails with NotFound when no row matches.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET password_hash = $1
		WHERE user_id = $2
	`, r.cat.Table("emailpassword_users"))

	return r.execExpectingMatch(ctx, query, passwordHash, userID)
}

// UpdateEmail fails with NotFound when no row matches and Conflict when the
// new email is already taken.
func (r *PostgresRepository) UpdateEmail(ctx context.Context, userID, email string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET email = $1
		WHERE user_id = $2
	`, r.cat.Table("emailpassword_users"))

	return r.execExpectingMatch(ctx, query, email, userID)
}

// DeleteUser removes the recipe row (reset tokens cascade) and the all-users
// index row. Must run inside a unit of work.
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID string) error {
	userQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("emailpassword_users"))

	if err := r.execExpectingMatch(ctx, userQuery, userID); err != nil {
		return err
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

// AddResetToken fails with UnknownParent when the user does not exist and
// Conflict when the token string is already present.
func (r *PostgresRepository) AddResetToken(ctx context.Context, token models.PasswordResetToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, token, token_expiry)
		VALUES ($1, $2, $3)
	`, r.cat.Table("emailpassword_pswd_reset_tokens"))

	if _, err := r.db.ExecContext(ctx, query, token.UserID, token.Token, token.TokenExpiry); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

// GetResetTokenForUpdate locks the token row for consumption. Must run
// inside a unit of work; the token stays locked until commit or rollback.
func (r *PostgresRepository) GetResetTokenForUpdate(ctx context.Context, key models.PasswordResetTokenKey) (models.PasswordResetToken, error) {
	query := fmt.Sprintf(`
		SELECT user_id, token, token_expiry FROM %s
		WHERE user_id = $1 AND token = $2 FOR UPDATE
	`, r.cat.Table("emailpassword_pswd_reset_tokens"))

	var token models.PasswordResetToken
	err := r.db.QueryRowContext(ctx, query, key.UserID, key.Token).
		Scan(&token.UserID, &token.Token, &token.TokenExpiry)
	if err != nil {
		return models.PasswordResetToken{}, storageerr.Translate(err)
	}
	return token, nil
}

// GetResetTokensForUser returns all reset tokens for a user.
func (r *PostgresRepository) GetResetTokensForUser(ctx context.Context, userID string) ([]models.PasswordResetToken, error) {
	query := fmt.Sprintf(`
		SELECT user_id, token, token_expiry FROM %s
		WHERE user_id = $1
	`, r.cat.Table("emailpassword_pswd_reset_tokens"))

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.PasswordResetToken
	for rows.Next() {
		var token models.PasswordResetToken
		if err := rows.Scan(&token.UserID, &token.Token, &token.TokenExpiry); err != nil {
			return nil, err
		}
		result = append(result, token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteResetToken fails with NotFound when the token row is absent,
// typically because a concurrent consumer got there first.
func (r *PostgresRepository) DeleteResetToken(ctx context.Context, key models.PasswordResetTokenKey) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND token = $2
	`, r.cat.Table("emailpassword_pswd_reset_tokens"))

	return r.execExpectingMatch(ctx, query, key.UserID, key.Token)
}

// DeleteExpiredResetTokens sweeps tokens whose expiry is before the given
// time and returns how many were removed. Zero is not an error.
func (r *PostgresRepository) DeleteExpiredResetTokens(ctx context.Context, expiredBefore int64) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE token_expiry < $1
	`, r.cat.Table("emailpassword_pswd_reset_tokens"))

	res, err := r.db.ExecContext(ctx, query, expiredBefore)
	if err != nil {
		return 0, storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) execExpectingMatch(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
