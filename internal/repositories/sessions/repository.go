package sessions

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores session rows and the session access-token signing keys.
//
// Refresh-token rotation is the canonical locked read-modify-write here:
// GetSessionForUpdate, then UpdateSessionInfo, inside one unit of work.
// Signing keys are listed under lock before a new one is appended, so two
// concurrent issuers cannot both append for the same gap.
type Repository interface {
	CreateSession(ctx context.Context, session models.SessionInfo) error
	GetSession(ctx context.Context, sessionHandle string) (models.SessionInfo, error)
	GetSessionForUpdate(ctx context.Context, sessionHandle string) (models.SessionInfo, error)
	GetSessionHandlesForUser(ctx context.Context, userID string) ([]string, error)
	UpdateSessionInfo(ctx context.Context, sessionHandle, refreshTokenHash2 string, expiresAt int64) error
	UpdateSessionData(ctx context.Context, sessionHandle, sessionData string) error
	DeleteSession(ctx context.Context, sessionHandle string) error
	DeleteSessionsForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, expiredBefore int64) (int64, error)
	CountActiveSessions(ctx context.Context, notExpiredAfter int64) (int64, error)

	AddSigningKey(ctx context.Context, key models.SessionSigningKey) error
	GetSigningKeys(ctx context.Context) ([]models.SessionSigningKey, error)
	GetSigningKeysForUpdate(ctx context.Context) ([]models.SessionSigningKey, error)
	RemoveSigningKeysCreatedBefore(ctx context.Context, createdBefore int64) (int64, error)
}
