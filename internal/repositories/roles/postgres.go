package roles

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

func (r *PostgresRepository) CreateRole(ctx context.Context, role string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (role)
		VALUES ($1)
	`, r.cat.Table("roles"))

	if _, err := r.db.ExecContext(ctx, query, role); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) DoesRoleExist(ctx context.Context, role string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE role = $1)
	`, r.cat.Table("roles"))

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, role).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) GetRoles(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT role FROM %s
	`, r.cat.Table("roles"))

	return r.queryStrings(ctx, query)
}

// DeleteRole relies on the schema to cascade the role's permission rows and
// user assignments.
func (r *PostgresRepository) DeleteRole(ctx context.Context, role string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE role = $1
	`, r.cat.Table("roles"))

	return r.execExpectingMatch(ctx, query, role)
}

func (r *PostgresRepository) AddPermissionToRole(ctx context.Context, key models.RolePermissionKey) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (role, permission)
		VALUES ($1, $2)
	`, r.cat.Table("role_permissions"))

	if _, err := r.db.ExecContext(ctx, query, key.Role, key.Permission); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) RemovePermissionFromRole(ctx context.Context, key models.RolePermissionKey) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE role = $1 AND permission = $2
	`, r.cat.Table("role_permissions"))

	return r.execExpectingMatch(ctx, query, key.Role, key.Permission)
}

func (r *PostgresRepository) GetPermissionsForRole(ctx context.Context, role string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT permission FROM %s
		WHERE role = $1
	`, r.cat.Table("role_permissions"))

	return r.queryStrings(ctx, query, role)
}

func (r *PostgresRepository) GetRolesWithPermission(ctx context.Context, permission string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT role FROM %s
		WHERE permission = $1
	`, r.cat.Table("role_permissions"))

	return r.queryStrings(ctx, query, permission)
}

func (r *PostgresRepository) AddRoleToUser(ctx context.Context, key models.UserRoleKey) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, role)
		VALUES ($1, $2)
	`, r.cat.Table("user_roles"))

	if _, err := r.db.ExecContext(ctx, query, key.UserID, key.Role); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

func (r *PostgresRepository) RemoveRoleFromUser(ctx context.Context, key models.UserRoleKey) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND role = $2
	`, r.cat.Table("user_roles"))

	return r.execExpectingMatch(ctx, query, key.UserID, key.Role)
}

func (r *PostgresRepository) GetRolesForUser(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT role FROM %s
		WHERE user_id = $1
	`, r.cat.Table("user_roles"))

	return r.queryStrings(ctx, query, userID)
}

func (r *PostgresRepository) GetUsersForRole(ctx context.Context, role string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT user_id FROM %s
		WHERE role = $1
	`, r.cat.Table("user_roles"))

	return r.queryStrings(ctx, query, role)
}

func (r *PostgresRepository) DeleteAllRolesForUser(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("user_roles"))

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, storageerr.Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
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
