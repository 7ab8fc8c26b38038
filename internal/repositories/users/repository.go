package users

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
	"github.com/corefirst/authstore/internal/pagination"
)

// Repository stores the recipe-agnostic all-users index. Every recipe's
// sign-up inserts a row here in the same unit of work as its own user row.
type Repository interface {
	InsertUser(ctx context.Context, user models.AuthRecipeUser) error
	GetUserByID(ctx context.Context, userID string) (models.AuthRecipeUser, error)

	// GetUsers returns a keyset-paginated page ordered by time_joined with
	// user_id as tie-break. orderToken must be "ASC" or "DESC"; recipeID
	// filters when non-empty; a nil boundary starts from the first page.
	GetUsers(ctx context.Context, orderToken string, recipeID string, boundary *pagination.Boundary, limit int) ([]models.AuthRecipeUser, error)

	CountUsers(ctx context.Context, recipeID string) (int64, error)
	DeleteUser(ctx context.Context, userID string) error
}
