package usermetadata

import (
	"context"
	"database/sql"
	"errors"
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

// SetMetadata locks the row first so two concurrent writers serialize and
// the loser sees the winner's insert instead of a duplicate-key failure.
func (r *PostgresRepository) SetMetadata(ctx context.Context, userID, metadata string) error {
	lockQuery := fmt.Sprintf(`
		SELECT user_id FROM %s
		WHERE user_id = $1 FOR UPDATE
	`, r.cat.Table("user_metadata"))

	var existing string
	err := r.db.QueryRowContext(ctx, lockQuery, userID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (user_id, user_metadata)
			VALUES ($1, $2)
		`, r.cat.Table("user_metadata"))
		if _, err := r.db.ExecContext(ctx, insertQuery, userID, metadata); err != nil {
			return storageerr.Translate(err)
		}
		return nil
	case err != nil:
		return storageerr.Translate(err)
	}

	updateQuery := fmt.Sprintf(`
		UPDATE %s SET user_metadata = $1
		WHERE user_id = $2
	`, r.cat.Table("user_metadata"))
	if _, err := r.db.ExecContext(ctx, updateQuery, metadata, userID); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) GetMetadata(ctx context.Context, userID string) (models.UserMetadata, error) {
	query := fmt.Sprintf(`
		SELECT user_id, user_metadata FROM %s
		WHERE user_id = $1
	`, r.cat.Table("user_metadata"))

	var m models.UserMetadata
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&m.UserID, &m.Metadata); err != nil {
		return models.UserMetadata{}, storageerr.Translate(err)
	}
	return m, nil
}

func (r *PostgresRepository) DeleteMetadata(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("user_metadata"))

	res, err := r.db.ExecContext(ctx, query, userID)
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
