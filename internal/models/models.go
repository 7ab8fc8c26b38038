// Package models defines the entity records persisted by the storage layer.
// The structs carry no behavior beyond structure; all timestamps are int64
// epoch milliseconds.
package models

import "database/sql"

// Recipe identifiers stored in the all-users index.
const (
	RecipeEmailPassword = "emailpassword"
	RecipeThirdParty    = "thirdparty"
	RecipePasswordless  = "passwordless"
)

// AuthRecipeUser is a row in the recipe-agnostic all-users index. TimeJoined
// is immutable after creation.
type AuthRecipeUser struct {
	UserID     string
	RecipeID   string
	TimeJoined int64
}

// EmailPasswordUser is a credential-login user. Email is unique.
type EmailPasswordUser struct {
	UserID       string
	Email        string
	PasswordHash string
	TimeJoined   int64
}

// PasswordResetToken belongs to exactly one EmailPasswordUser and is removed
// when that user is removed. The token string is globally unique.
type PasswordResetToken struct {
	UserID      string
	Token       string
	TokenExpiry int64
}

// ThirdPartyUser is a federated-login user, identified by the provider and
// the provider-side user id. UserID is unique across the table.
type ThirdPartyUser struct {
	ThirdPartyID     string
	ThirdPartyUserID string
	UserID           string
	Email            string
	TimeJoined       int64
}

// EmailVerificationToken is consumed to mark (UserID, Email) verified. The
// token string is globally unique.
type EmailVerificationToken struct {
	UserID      string
	Email       string
	Token       string
	TokenExpiry int64
}

// VerifiedEmail records that Email has been verified for UserID.
type VerifiedEmail struct {
	UserID string
	Email  string
}

// PasswordlessUser is a passwordless-login user. Exactly one of Email or
// PhoneNumber may be absent; each is unique when present.
type PasswordlessUser struct {
	UserID      string
	Email       sql.NullString
	PhoneNumber sql.NullString
	TimeJoined  int64
}

// PasswordlessDevice groups the active codes sent to one email or phone
// number. Deleting a device removes its codes.
type PasswordlessDevice struct {
	DeviceIDHash   string
	Email          sql.NullString
	PhoneNumber    sql.NullString
	LinkCodeSalt   string
	FailedAttempts int
}

// PasswordlessCode is a one-time code belonging to a device.
type PasswordlessCode struct {
	CodeID       string
	DeviceIDHash string
	LinkCodeHash string
	CreatedAt    int64
}

// SessionInfo is one session row. RefreshTokenHash2 and ExpiresAt change on
// rotation; the payload columns are opaque to this layer.
type SessionInfo struct {
	SessionHandle     string
	UserID            string
	RefreshTokenHash2 string
	SessionData       string
	ExpiresAt         int64
	CreatedAtTime     int64
	JWTUserPayload    string
}

// SessionSigningKey is a session access-token signing key, keyed by its
// creation time. Rows are appended, never updated in place.
type SessionSigningKey struct {
	CreatedAtTime int64
	Value         string
}

// JWTSigningKey is keyed by KeyID. Rows are appended, never updated in place.
type JWTSigningKey struct {
	KeyID     string
	KeyString string
	Algorithm string
	CreatedAt int64
}

// Role is a named role; permissions and user assignments hang off it.
type Role struct {
	Role string
}

// UserIDMapping links an internal user id to an external one. Both sides are
// unique.
type UserIDMapping struct {
	InternalUserID     string
	ExternalUserID     string
	ExternalUserIDInfo sql.NullString
}

// UserMetadata is a single mutable blob per user, no relationships.
type UserMetadata struct {
	UserID   string
	Metadata string
}
