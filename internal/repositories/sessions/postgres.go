// Package sessions provides the PostgreSQL-backed repository for session
// rows and session access-token signing keys.
package sessions

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

// CreateSession fails with Conflict when the session handle is taken.
func (r *PostgresRepository) CreateSession(ctx context.Context, session models.SessionInfo) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (session_handle, user_id, refresh_token_hash_2, session_data, expires_at, created_at_time, jwt_user_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.cat.Table("session_info"))

	_, err := r.db.ExecContext(ctx, query,
		session.SessionHandle, session.UserID, session.RefreshTokenHash2,
		session.SessionData, session.ExpiresAt, session.CreatedAtTime, session.JWTUserPayload)
	if err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) getSession(ctx context.Context, sessionHandle, lock string) (models.SessionInfo, error) {
	query := fmt.Sprintf(`
		SELECT session_handle, user_id, refresh_token_hash_2, session_data, expires_at, created_at_time, jwt_user_payload FROM %s
		WHERE session_handle = $1%s
	`, r.cat.Table("session_info"), lock)

	var session models.SessionInfo
	err := r.db.QueryRowContext(ctx, query, sessionHandle).Scan(
		&session.SessionHandle, &session.UserID, &session.RefreshTokenHash2,
		&session.SessionData, &session.ExpiresAt, &session.CreatedAtTime, &session.JWTUserPayload)
	if err != nil {
		return models.SessionInfo{}, storageerr.Translate(err)
	}
	return session, nil
}

// GetSession is a plain read, safe outside a unit of work. It may observe
// pre- or post-write state of a concurrent rotation.
func (r *PostgresRepository) GetSession(ctx context.Context, sessionHandle string) (models.SessionInfo, error) {
	return r.getSession(ctx, sessionHandle, "")
}

// GetSessionForUpdate locks the session row for rotation. Must run inside a
// unit of work; a concurrent locker blocks until this one ends and then
// observes its committed result.
func (r *PostgresRepository) GetSessionForUpdate(ctx context.Context, sessionHandle string) (models.SessionInfo, error) {
	return r.getSession(ctx, sessionHandle, " FOR UPDATE")
}

// GetSessionHandlesForUser returns the handles of every session for a user.
func (r *PostgresRepository) GetSessionHandlesForUser(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT session_handle FROM %s
		WHERE user_id = $1
	`, r.cat.Table("session_info"))

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return handles, nil
}

// UpdateSessionInfo writes the rotated refresh-token hash and new expiry.
// Fails with NotFound when the session is gone.
func (r *PostgresRepository) UpdateSessionInfo(ctx context.Context, sessionHandle, refreshTokenHash2 string, expiresAt int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET refresh_token_hash_2 = $1, expires_at = $2
		WHERE session_handle = $3
	`, r.cat.Table("session_info"))

	return r.execExpectingMatch(ctx, query, refreshTokenHash2, expiresAt, sessionHandle)
}

// UpdateSessionData replaces the opaque session payload.
func (r *PostgresRepository) UpdateSessionData(ctx context.Context, sessionHandle, sessionData string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET session_data = $1
		WHERE session_handle = $2
	`, r.cat.Table("session_info"))

	return r.execExpectingMatch(ctx, query, sessionData, sessionHandle)
}

// DeleteSession fails with NotFound when the session is already gone.
func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionHandle string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE session_handle = $1
	`, r.cat.Table("session_info"))

	return r.execExpectingMatch(ctx, query, sessionHandle)
}

// DeleteSessionsForUser revokes every session of a user and returns how
// many were removed. Zero is not an error.
func (r *PostgresRepository) DeleteSessionsForUser(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("session_info"))

	return r.execCounting(ctx, query, userID)
}

// DeleteExpiredSessions sweeps sessions whose expiry is before the given
// time.
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context, expiredBefore int64) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE expires_at < $1
	`, r.cat.Table("session_info"))

	return r.execCounting(ctx, query, expiredBefore)
}

// CountActiveSessions counts sessions expiring at or after the given time.
func (r *PostgresRepository) CountActiveSessions(ctx context.Context, notExpiredAfter int64) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE expires_at >= $1
	`, r.cat.Table("session_info"))

	var count int64
	if err := r.db.QueryRowContext(ctx, query, notExpiredAfter).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

// AddSigningKey fails with Conflict when a key with the same creation time
// is already present: two issuers raced, and the loser re-reads.
func (r *PostgresRepository) AddSigningKey(ctx context.Context, key models.SessionSigningKey) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (created_at_time, value)
		VALUES ($1, $2)
	`, r.cat.Table("session_access_token_signing_keys"))

	if _, err := r.db.ExecContext(ctx, query, key.CreatedAtTime, key.Value); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) getSigningKeys(ctx context.Context, lock string) ([]models.SessionSigningKey, error) {
	query := fmt.Sprintf(`
		SELECT created_at_time, value FROM %s
		ORDER BY created_at_time DESC%s
	`, r.cat.Table("session_access_token_signing_keys"), lock)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []models.SessionSigningKey
	for rows.Next() {
		var key models.SessionSigningKey
		if err := rows.Scan(&key.CreatedAtTime, &key.Value); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// GetSigningKeys returns all keys, newest first.
func (r *PostgresRepository) GetSigningKeys(ctx context.Context) ([]models.SessionSigningKey, error) {
	return r.getSigningKeys(ctx, "")
}

// GetSigningKeysForUpdate locks all key rows before a conditional append.
// Must run inside a unit of work.
func (r *PostgresRepository) GetSigningKeysForUpdate(ctx context.Context) ([]models.SessionSigningKey, error) {
	return r.getSigningKeys(ctx, " FOR UPDATE")
}

// RemoveSigningKeysCreatedBefore drops retired keys and returns how many
// were removed.
func (r *PostgresRepository) RemoveSigningKeysCreatedBefore(ctx context.Context, createdBefore int64) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE created_at_time < $1
	`, r.cat.Table("session_access_token_signing_keys"))

	return r.execCounting(ctx, query, createdBefore)
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

func (r *PostgresRepository) execCounting(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
