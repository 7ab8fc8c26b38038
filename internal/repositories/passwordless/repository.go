package passwordless

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores passwordless users, their devices, and each device's
// one-time codes. A device is the parent of its codes: deleting the device
// removes the codes in the same transaction.
//
// CreateUser, DeleteUser and CreateDeviceWithCode are multi-statement and
// must run inside a unit of work; so must the ForUpdate reads and
// IncrementFailedAttempts.
type Repository interface {
	CreateUser(ctx context.Context, user models.PasswordlessUser) error
	GetUserByID(ctx context.Context, userID string) (models.PasswordlessUser, error)
	GetUserByEmail(ctx context.Context, email string) (models.PasswordlessUser, error)
	GetUserByPhoneNumber(ctx context.Context, phoneNumber string) (models.PasswordlessUser, error)
	UpdateEmail(ctx context.Context, userID string, email *string) error
	UpdatePhoneNumber(ctx context.Context, userID string, phoneNumber *string) error
	DeleteUser(ctx context.Context, userID string) error

	CreateDeviceWithCode(ctx context.Context, device models.PasswordlessDevice, code models.PasswordlessCode) error
	GetDevice(ctx context.Context, deviceIDHash string) (models.PasswordlessDevice, error)
	GetDeviceForUpdate(ctx context.Context, deviceIDHash string) (models.PasswordlessDevice, error)
	GetDevicesByEmail(ctx context.Context, email string) ([]models.PasswordlessDevice, error)
	GetDevicesByPhoneNumber(ctx context.Context, phoneNumber string) ([]models.PasswordlessDevice, error)
	IncrementFailedAttempts(ctx context.Context, deviceIDHash string) (int, error)
	DeleteDevice(ctx context.Context, deviceIDHash string) error

	CreateCode(ctx context.Context, code models.PasswordlessCode) error
	GetCode(ctx context.Context, codeID string) (models.PasswordlessCode, error)
	GetCodeByLinkCodeHash(ctx context.Context, linkCodeHash string) (models.PasswordlessCode, error)
	GetCodesByDevice(ctx context.Context, deviceIDHash string) ([]models.PasswordlessCode, error)
	DeleteCode(ctx context.Context, codeID string) error
	DeleteCodesCreatedBefore(ctx context.Context, createdBefore int64) (int64, error)
}
