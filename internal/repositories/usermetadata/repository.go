package usermetadata

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores one mutable metadata blob per user.
type Repository interface {
	// SetMetadata inserts the blob or replaces an existing one. It takes a
	// row lock before deciding, so it must run inside a unit of work.
	SetMetadata(ctx context.Context, userID, metadata string) error
	GetMetadata(ctx context.Context, userID string) (models.UserMetadata, error)
	// DeleteMetadata fails with NotFound when the user has no blob.
	DeleteMetadata(ctx context.Context, userID string) error
}
