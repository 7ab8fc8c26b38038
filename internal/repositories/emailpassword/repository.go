package emailpassword

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores credential-login users and their password-reset tokens.
//
// SignUp and DeleteUser touch both the recipe table and the all-users index
// and must run inside a unit of work; GetUserByIDForUpdate and
// GetResetTokenForUpdate take row locks and must too.
type Repository interface {
	SignUp(ctx context.Context, user models.EmailPasswordUser) error
	GetUserByID(ctx context.Context, userID string) (models.EmailPasswordUser, error)
	GetUserByIDForUpdate(ctx context.Context, userID string) (models.EmailPasswordUser, error)
	GetUserByEmail(ctx context.Context, email string) (models.EmailPasswordUser, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	UpdateEmail(ctx context.Context, userID, email string) error
	DeleteUser(ctx context.Context, userID string) error

	AddResetToken(ctx context.Context, token models.PasswordResetToken) error
	GetResetTokenForUpdate(ctx context.Context, key models.PasswordResetTokenKey) (models.PasswordResetToken, error)
	GetResetTokensForUser(ctx context.Context, userID string) ([]models.PasswordResetToken, error)
	DeleteResetToken(ctx context.Context, key models.PasswordResetTokenKey) error
	DeleteExpiredResetTokens(ctx context.Context, expiredBefore int64) (int64, error)
}
