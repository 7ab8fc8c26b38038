package emailverification

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores email-verification tokens and the verified-email marks
// they produce. VerifyEmail is multi-statement and must run inside a unit of
// work, as must GetTokenForUpdate.
type Repository interface {
	AddToken(ctx context.Context, token models.EmailVerificationToken) error
	GetTokenForUpdate(ctx context.Context, key models.EmailVerificationTokenKey) (models.EmailVerificationToken, error)
	GetTokensForUser(ctx context.Context, userID, email string) ([]models.EmailVerificationToken, error)

	// VerifyEmail deletes every token for (userID, email) and records the
	// verified mark, all on the bound transaction.
	VerifyEmail(ctx context.Context, userID, email string) error

	IsEmailVerified(ctx context.Context, key models.VerifiedEmailKey) (bool, error)
	UnverifyEmail(ctx context.Context, key models.VerifiedEmailKey) error
	DeleteExpiredTokens(ctx context.Context, expiredBefore int64) (int64, error)
	DeleteUserRows(ctx context.Context, userID string) error
}
