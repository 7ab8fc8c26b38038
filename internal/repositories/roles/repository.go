package roles

import (
	"context"

	"github.com/corefirst/authstore/internal/models"
)

// Repository stores roles, their permissions, and user-role assignments.
// Permission and assignment rows reference the roles table and are removed
// with it when a role is deleted.
type Repository interface {
	// CreateRole fails with Conflict when the role already exists. Callers
	// that want idempotence check for Conflict themselves.
	CreateRole(ctx context.Context, role string) error
	DoesRoleExist(ctx context.Context, role string) (bool, error)
	GetRoles(ctx context.Context) ([]string, error)
	// DeleteRole removes the role together with its permission rows and
	// user assignments. Fails with NotFound when the role is absent.
	DeleteRole(ctx context.Context, role string) error

	// AddPermissionToRole fails with Conflict when the pair exists and with
	// UnknownParent when the role does not.
	AddPermissionToRole(ctx context.Context, key models.RolePermissionKey) error
	// RemovePermissionFromRole fails with NotFound when the pair is absent.
	RemovePermissionFromRole(ctx context.Context, key models.RolePermissionKey) error
	GetPermissionsForRole(ctx context.Context, role string) ([]string, error)
	GetRolesWithPermission(ctx context.Context, permission string) ([]string, error)

	// AddRoleToUser fails with Conflict when the pair exists and with
	// UnknownParent when the role does not.
	AddRoleToUser(ctx context.Context, key models.UserRoleKey) error
	// RemoveRoleFromUser fails with NotFound when the pair is absent.
	RemoveRoleFromUser(ctx context.Context, key models.UserRoleKey) error
	GetRolesForUser(ctx context.Context, userID string) ([]string, error)
	GetUsersForRole(ctx context.Context, role string) ([]string, error)
	// DeleteAllRolesForUser returns how many assignments were removed.
	DeleteAllRolesForUser(ctx context.Context, userID string) (int64, error)
}
