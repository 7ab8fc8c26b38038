package jwtsigning

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores JWT signing keys. Keys are appended and retired, never
// updated in place.
type Repository interface {
	// GetKeys returns all keys, newest first.
	GetKeys(ctx context.Context) ([]models.JWTSigningKey, error)
	// GetKeysForUpdate locks all key rows so a caller can list then
	// conditionally append without racing another issuer. Must run inside
	// a unit of work.
	GetKeysForUpdate(ctx context.Context) ([]models.JWTSigningKey, error)
	// AddKey fails with Conflict when the key id is already present.
	AddKey(ctx context.Context, key models.JWTSigningKey) error
}
