package useridmapping

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository links internal user ids to externally supplied ones. At most
// one mapping may exist per internal id and per external id.
type Repository interface {
	// CreateMapping fails with Conflict when either side is already mapped
	// and with UnknownParent when the internal id has no auth user row.
	CreateMapping(ctx context.Context, mapping models.UserIDMapping) error
	GetByInternalID(ctx context.Context, internalUserID string) (models.UserIDMapping, error)
	GetByExternalID(ctx context.Context, externalUserID string) (models.UserIDMapping, error)
	// GetByAnyID matches the given id against both sides of the mapping.
	GetByAnyID(ctx context.Context, userID string) (models.UserIDMapping, error)
	// DeleteMapping fails with NotFound when no mapping matches.
	DeleteMapping(ctx context.Context, internalUserID string) error
	// UpdateExternalIDInfo replaces the info blob; nil clears it. Fails
	// with NotFound when no mapping exists for the internal id.
	UpdateExternalIDInfo(ctx context.Context, internalUserID string, info *string) error
}
