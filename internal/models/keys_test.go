package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeKeys_ValueEquality(t *testing.T) {
	a := PasswordResetTokenKey{UserID: "u-1", Token: "tok"}
	b := PasswordResetTokenKey{UserID: "u-1", Token: "tok"}
	c := PasswordResetTokenKey{UserID: "u-2", Token: "tok"}

	assert.True(t, a == b)
	assert.False(t, a == c)
}

func TestCompositeKeys_EveryComponentMatters(t *testing.T) {
	base := EmailVerificationTokenKey{UserID: "u-1", Email: "a@b.c", Token: "t"}

	assert.NotEqual(t, base, EmailVerificationTokenKey{UserID: "u-2", Email: "a@b.c", Token: "t"})
	assert.NotEqual(t, base, EmailVerificationTokenKey{UserID: "u-1", Email: "x@b.c", Token: "t"})
	assert.NotEqual(t, base, EmailVerificationTokenKey{UserID: "u-1", Email: "a@b.c", Token: "s"})
}

func TestCompositeKeys_InterchangeableAsMapKeys(t *testing.T) {
	seen := map[UserRoleKey]int{}
	seen[UserRoleKey{UserID: "u-1", Role: "admin"}] = 1
	seen[UserRoleKey{UserID: "u-1", Role: "admin"}]++

	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[UserRoleKey{UserID: "u-1", Role: "admin"}])
}
