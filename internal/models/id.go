package models

import "github.com/google/uuid"

// NewUserID mints a fresh 36 character user id. Callers generate the id
// before inserting the auth user row so the same value can be written to the
// recipe table in one unit of work.
func NewUserID() string {
	return uuid.NewString()
}
