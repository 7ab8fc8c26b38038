package useridmapping

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

func (r *PostgresRepository) CreateMapping(ctx context.Context, mapping models.UserIDMapping) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (internal_user_id, external_user_id, external_user_id_info)
		VALUES ($1, $2, $3)
	`, r.cat.Table("userid_mapping"))

	_, err := r.db.ExecContext(ctx, query,
		mapping.InternalUserID, mapping.ExternalUserID, mapping.ExternalUserIDInfo)
	if err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) getMapping(ctx context.Context, where string, args ...any) (models.UserIDMapping, error) {
	query := fmt.Sprintf(`
		SELECT internal_user_id, external_user_id, external_user_id_info FROM %s
		WHERE %s
	`, r.cat.Table("userid_mapping"), where)

	var mapping models.UserIDMapping
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&mapping.InternalUserID, &mapping.ExternalUserID, &mapping.ExternalUserIDInfo)
	if err != nil {
		return models.UserIDMapping{}, storageerr.Translate(err)
	}
	return mapping, nil
}

func (r *PostgresRepository) GetByInternalID(ctx context.Context, internalUserID string) (models.UserIDMapping, error) {
	return r.getMapping(ctx, "internal_user_id = $1", internalUserID)
}

func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalUserID string) (models.UserIDMapping, error) {
	return r.getMapping(ctx, "external_user_id = $1", externalUserID)
}

func (r *PostgresRepository) GetByAnyID(ctx context.Context, userID string) (models.UserIDMapping, error) {
	return r.getMapping(ctx, "internal_user_id = $1 OR external_user_id = $1", userID)
}

func (r *PostgresRepository) DeleteMapping(ctx context.Context, internalUserID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE internal_user_id = $1
	`, r.cat.Table("userid_mapping"))

	return r.execExpectingMatch(ctx, query, internalUserID)
}

func (r *PostgresRepository) UpdateExternalIDInfo(ctx context.Context, internalUserID string, info *string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET external_user_id_info = $1
		WHERE internal_user_id = $2
	`, r.cat.Table("userid_mapping"))

	var value sql.NullString
	if info != nil {
		value = sql.NullString{String: *info, Valid: true}
	}
	return r.execExpectingMatch(ctx, query, value, internalUserID)
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
