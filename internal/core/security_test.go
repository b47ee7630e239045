// AngelaMos | 2026
// security_test.go

package core

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_NeverStoresPlaintext(t *testing.T) {
	passwords := []string{"password123", "correct horse battery", "Sh0rt!pw"}

	for _, pw := range passwords {
		hash, err := HashPassword(pw)
		require.NoError(t, err)

		assert.NotEqual(t, pw, hash)
		assert.NotContains(t, hash, pw)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

		ok, err := VerifyPassword(pw, hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("right-password")
	require.NoError(t, err)

	ok, err := VerifyPassword("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_CorruptHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "plaintext", hash: "password123"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{name: "bad params", hash: "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{name: "bad base64", hash: "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
		{name: "zero parallelism", hash: "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA"},
		{name: "zero time", hash: "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA"},
		{name: "memory below threads", hash: "$argon2id$v=19$m=16,t=1,p=4$c2FsdA$aGFzaA"},
		{name: "memory too large", hash: "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword("anything", tt.hash)
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrCorruptHash)
		})
	}
}

func TestVerifyPasswordWithRehash_UpgradesWeakParams(t *testing.T) {
	hash, err := HashPassword("upgrade-me")
	require.NoError(t, err)

	weak := strings.Replace(hash, "t=1", "t=2", 1)
	parsed, err := parseHash(weak)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), parsed.params.time)
	assert.NotEmpty(t, parsed.salt)

	assert.True(t, needsRehash(weak))
	assert.False(t, needsRehash(hash))

	ok, newHash, err := VerifyPasswordWithRehash("upgrade-me", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, newHash)

	old := phcHash{
		params: argonParams{memory: 32 * 1024, time: 2, threads: 2, keyLen: 32},
		salt:   []byte("0123456789abcdef"),
	}
	old.key = old.params.derive("upgrade-me", old.salt)

	ok, newHash, err = VerifyPasswordWithRehash("upgrade-me", old.String())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, newHash)
	assert.False(t, needsRehash(newHash))

	ok, newHash, err = VerifyPasswordWithRehash("wrong", old.String())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, newHash)
}

func TestVerifyPasswordTimingSafe_MissingHash(t *testing.T) {
	ok, newHash, err := VerifyPasswordTimingSafe("whatever", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, newHash)

	empty := ""
	ok, _, err = VerifyPasswordTimingSafe("whatever", &empty)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	other, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
}
