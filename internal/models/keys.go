package models

// Composite keys are comparable value structs built from the raw id values.
// Two instances naming the same logical row compare equal with == and hash
// identically as map keys; identity never matters.

// PasswordResetTokenKey identifies one password-reset token row.
type PasswordResetTokenKey struct {
	UserID string
	Token  string
}

// ThirdPartyKey identifies a federated user by provider and provider-side id.
type ThirdPartyKey struct {
	ThirdPartyID     string
	ThirdPartyUserID string
}

// EmailVerificationTokenKey identifies one email-verification token row.
type EmailVerificationTokenKey struct {
	UserID string
	Email  string
	Token  string
}

// VerifiedEmailKey identifies one verified-email row.
type VerifiedEmailKey struct {
	UserID string
	Email  string
}

// RolePermissionKey identifies one role-permission pair.
type RolePermissionKey struct {
	Role       string
	Permission string
}

// UserRoleKey identifies one user-role pair.
type UserRoleKey struct {
	UserID string
	Role   string
}
