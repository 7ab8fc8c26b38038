// Package emailverification provides the PostgreSQL-backed repository for
// email-verification tokens and verified-email records.
package emailverification

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

// AddToken fails with Conflict when the token string is already present.
func (r *PostgresRepository) AddToken(ctx context.Context, token models.EmailVerificationToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, email, token, token_expiry)
		VALUES ($1, $2, $3, $4)
	`, r.cat.Table("emailverification_tokens"))

	if _, err := r.db.ExecContext(ctx, query, token.UserID, token.Email, token.Token, token.TokenExpiry); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

// GetTokenForUpdate locks the token row for consumption. Must run inside a
// unit of work.
func (r *PostgresRepository) GetTokenForUpdate(ctx context.Context, key models.EmailVerificationTokenKey) (models.EmailVerificationToken, error) {
	query := fmt.Sprintf(`
		SELECT user_id, email, token, token_expiry FROM %s
		WHERE user_id = $1 AND email = $2 AND token = $3 FOR UPDATE
	`, r.cat.Table("emailverification_tokens"))

	var token models.EmailVerificationToken
	err := r.db.QueryRowContext(ctx, query, key.UserID, key.Email, key.Token).
		Scan(&token.UserID, &token.Email, &token.Token, &token.TokenExpiry)
	if err != nil {
		return models.EmailVerificationToken{}, storageerr.Translate(err)
	}
	return token, nil
}

// GetTokensForUser returns all outstanding tokens for (userID, email).
func (r *PostgresRepository) GetTokensForUser(ctx context.Context, userID, email string) ([]models.EmailVerificationToken, error) {
	query := fmt.Sprintf(`
		SELECT user_id, email, token, token_expiry FROM %s
		WHERE user_id = $1 AND email = $2
	`, r.cat.Table("emailverification_tokens"))

	rows, err := r.db.QueryContext(ctx, query, userID, email)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.EmailVerificationToken
	for rows.Next() {
		var token models.EmailVerificationToken
		if err := rows.Scan(&token.UserID, &token.Email, &token.Token, &token.TokenExpiry); err != nil {
			return nil, err
		}
		result = append(result, token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyEmail removes every token for the pair and records the verified
// mark. Must run inside a unit of work; verifying an already-verified email
// fails with Conflict.
func (r *PostgresRepository) VerifyEmail(ctx context.Context, userID, email string) error {
	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND email = $2
	`, r.cat.Table("emailverification_tokens"))

	if _, err := r.db.ExecContext(ctx, deleteQuery, userID, email); err != nil {
		return storageerr.Translate(err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (user_id, email)
		VALUES ($1, $2)
	`, r.cat.Table("emailverification_verified_emails"))

	if _, err := r.db.ExecContext(ctx, insertQuery, userID, email); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

// IsEmailVerified reports whether the verified mark exists.
func (r *PostgresRepository) IsEmailVerified(ctx context.Context, key models.VerifiedEmailKey) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s WHERE user_id = $1 AND email = $2
		)
	`, r.cat.Table("emailverification_verified_emails"))

	var verified bool
	if err := r.db.QueryRowContext(ctx, query, key.UserID, key.Email).Scan(&verified); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return verified, nil
}

// UnverifyEmail fails with NotFound when the mark is absent.
func (r *PostgresRepository) UnverifyEmail(ctx context.Context, key models.VerifiedEmailKey) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND email = $2
	`, r.cat.Table("emailverification_verified_emails"))

	res, err := r.db.ExecContext(ctx, query, key.UserID, key.Email)
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

// DeleteExpiredTokens sweeps tokens whose expiry is before the given time.
func (r *PostgresRepository) DeleteExpiredTokens(ctx context.Context, expiredBefore int64) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE token_expiry < $1
	`, r.cat.Table("emailverification_tokens"))

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

// DeleteUserRows removes all tokens and verified marks for a user, as part
// of a cross-recipe user deletion. Zero matching rows is fine; the whole
// removal runs on the caller's transaction.
func (r *PostgresRepository) DeleteUserRows(ctx context.Context, userID string) error {
	tokenQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("emailverification_tokens"))

	if _, err := r.db.ExecContext(ctx, tokenQuery, userID); err != nil {
		return storageerr.Translate(err)
	}

	verifiedQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("emailverification_verified_emails"))

	if _, err := r.db.ExecContext(ctx, verifiedQuery, userID); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}
