// AngelaMos | 2026
// entity_test.go

package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthalt/user-api/internal/core"
)

func TestUser_SetAndCheckPassword(t *testing.T) {
	u := &User{Username: "alice"}

	require.NoError(t, u.SetPassword("password123"))
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NotContains(t, u.PasswordHash, "password123")

	ok, err := u.CheckPassword("password123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = u.CheckPassword("password124")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUser_SetPasswordReplacesHash(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("first-password"))
	first := u.PasswordHash

	require.NoError(t, u.SetPassword("second-password"))
	assert.NotEqual(t, first, u.PasswordHash)

	ok, err := u.CheckPassword("first-password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUser_CheckPasswordWithoutHash(t *testing.T) {
	u := &User{}

	ok, err := u.CheckPassword("anything")
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrCorruptHash)
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleAdmin))
	assert.True(t, IsValidRole(RoleUser))
	assert.False(t, IsValidRole("admin"))
	assert.False(t, IsValidRole(""))
}
