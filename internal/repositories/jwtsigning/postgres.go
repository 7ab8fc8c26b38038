package jwtsigning

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

func (r *PostgresRepository) getKeys(ctx context.Context, lock string) ([]models.JWTSigningKey, error) {
	// created_at ties are broken by key_id so the order is stable.
	query := fmt.Sprintf(`
		SELECT key_id, key_string, algorithm, created_at FROM %s
		ORDER BY created_at DESC, key_id DESC%s
	`, r.cat.Table("jwt_signing_keys"), lock)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []models.JWTSigningKey
	for rows.Next() {
		var key models.JWTSigningKey
		if err := rows.Scan(&key.KeyID, &key.KeyString, &key.Algorithm, &key.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *PostgresRepository) GetKeys(ctx context.Context) ([]models.JWTSigningKey, error) {
	return r.getKeys(ctx, "")
}

func (r *PostgresRepository) GetKeysForUpdate(ctx context.Context) ([]models.JWTSigningKey, error) {
	return r.getKeys(ctx, " FOR UPDATE")
}

func (r *PostgresRepository) AddKey(ctx context.Context, key models.JWTSigningKey) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key_id, key_string, algorithm, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.cat.Table("jwt_signing_keys"))

	if _, err := r.db.ExecContext(ctx, query, key.KeyID, key.KeyString, key.Algorithm, key.CreatedAt); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}
