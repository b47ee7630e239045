// AngelaMos | 2026
// migrations_test.go

package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.Glob(files, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, name := range entries {
		body, err := fs.ReadFile(files, name)
		require.NoError(t, err)

		sql := string(body)
		assert.Contains(t, sql, "-- +goose Up", name)
		assert.Contains(t, sql, "-- +goose Down", name)
	}
}

func TestUsersSchemaUniqueness(t *testing.T) {
	body, err := fs.ReadFile(files, "00001_create_users.sql")
	require.NoError(t, err)

	sql := string(body)
	for _, constraint := range []string{
		"users_username_key UNIQUE (username)",
		"users_email_key UNIQUE (email)",
		"users_password_reset_token_key UNIQUE (password_reset_token)",
	} {
		assert.True(t, strings.Contains(sql, constraint), constraint)
	}
}
