// Package users provides the PostgreSQL-backed repository for the
// recipe-agnostic all-users index, including the paginated user listings.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/corefirst/authstore/internal/catalog"
	"github.com/corefirst/authstore/internal/dbx"
	"github.com/corefirst/authstore/internal/models"
	"github.com/corefirst/authstore/internal/pagination"
	"github.com/corefirst/authstore/internal/storageerr"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB, *sql.Tx or *dbx.UnitOfWork).
type PostgresRepository struct {
	db  dbx.DBTX
	cat catalog.Catalog
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, cat catalog.Catalog) *PostgresRepository {
	return &PostgresRepository{db: db, cat: cat}
}

// InsertUser adds a user to the index. Fails with Conflict when the user id
// is already present.
func (r *PostgresRepository) InsertUser(ctx context.Context, user models.AuthRecipeUser) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, recipe_id, time_joined)
		VALUES ($1, $2, $3)
	`, r.cat.Table("all_auth_recipe_users"))

	if _, err := r.db.ExecContext(ctx, query, user.UserID, user.RecipeID, user.TimeJoined); err != nil {
		return storageerr.Translate(err)
	}
	return nil
}

// GetUserByID returns the index row for userID.
func (r *PostgresRepository) GetUserByID(ctx context.Context, userID string) (models.AuthRecipeUser, error) {
	query := fmt.Sprintf(`
		SELECT user_id, recipe_id, time_joined FROM %s
		WHERE user_id = $1
	`, r.cat.Table("all_auth_recipe_users"))

	var user models.AuthRecipeUser
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&user.UserID, &user.RecipeID, &user.TimeJoined)
	if err != nil {
		return models.AuthRecipeUser{}, storageerr.Translate(err)
	}
	return user, nil
}

// GetUsers lists users ordered by join time. The order token is validated
// before any SQL is built; an empty page is a valid result, not an error.
func (r *PostgresRepository) GetUsers(ctx context.Context, orderToken string, recipeID string, boundary *pagination.Boundary, limit int) ([]models.AuthRecipeUser, error) {
	order, err := pagination.ParseOrder(orderToken)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", storageerr.ErrInvalidArgument, limit)
	}

	ks := pagination.Keyset{OrderColumn: "time_joined", TieBreakColumn: "user_id", Order: order}

	var (
		conds []string
		args  []any
	)
	if recipeID != "" {
		args = append(args, recipeID)
		conds = append(conds, fmt.Sprintf("recipe_id = $%d", len(args)))
	}
	if boundary != nil {
		pred, boundaryArgs := ks.BoundaryPredicate(*boundary, len(args)+1)
		conds = append(conds, pred)
		args = append(args, boundaryArgs...)
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT user_id, recipe_id, time_joined FROM %s
		%s
		%s
		LIMIT $%d
	`, r.cat.Table("all_auth_recipe_users"), where, ks.OrderBy(), len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.AuthRecipeUser
	for rows.Next() {
		var user models.AuthRecipeUser
		if err := rows.Scan(&user.UserID, &user.RecipeID, &user.TimeJoined); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountUsers counts index rows, optionally filtered by recipe.
func (r *PostgresRepository) CountUsers(ctx context.Context, recipeID string) (int64, error) {
	table := r.cat.Table("all_auth_recipe_users")

	var (
		query string
		args  []any
	)
	if recipeID == "" {
		query = fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	} else {
		query = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE recipe_id = $1`, table)
		args = append(args, recipeID)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

// DeleteUser removes the index row. Rows in dependent tables (user-id
// mappings) cascade; recipe tables hold their own rows under the same id
// and are cleaned by their repositories in the same unit of work.
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1
	`, r.cat.Table("all_auth_recipe_users"))

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
