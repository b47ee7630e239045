// AngelaMos | 2026
// admin_test.go

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/testutil"
	"github.com/nthalt/user-api/internal/user"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func newAdminCreator() (*auth.Service, *user.Service) {
	store := testutil.NewMemStore()
	users := user.NewService(store, store.UserTx())
	svc := auth.NewService(auth.ServiceDeps{
		Repo:   store,
		Tx:     store.AuthTx(),
		Users:  users,
		Policy: auth.NewPasswordPolicy(config.PasswordConfig{}),
	})
	return svc, users
}

func TestCreateAdmin_PromptsForMissingFields(t *testing.T) {
	svc, users := newAdminCreator()
	stubPasswords(t, "admin-password", "admin-password")

	var out bytes.Buffer
	in := strings.NewReader("root@example.com\n Root \nAdmin\n")
	err := createAdmin(context.Background(), svc, newPrompter(in, &out),
		auth.RegisterRequest{Username: "root"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), `admin "root" created`)
	assert.NotContains(t, out.String(), "admin-password")

	got, err := users.GetByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.Equal(t, "Root", got.FirstName)
}

func TestCreateAdmin_Rejections(t *testing.T) {
	base := auth.RegisterRequest{
		Username: "root", Email: "root@example.com", FirstName: "Root", LastName: "Admin",
	}

	tests := []struct {
		name      string
		passwords []string
		req       auth.RegisterRequest
		want      string
	}{
		{name: "mismatch", passwords: []string{"admin-password", "admin-passwort"}, req: base, want: "passwords do not match"},
		{name: "weak", passwords: []string{"short", "short"}, req: base, want: "password must be at least 8 characters"},
		{name: "no terminal", passwords: nil, req: base, want: "read password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAdminCreator()
			stubPasswords(t, tt.passwords...)

			err := createAdmin(context.Background(), svc, newPrompter(strings.NewReader(""), &bytes.Buffer{}), tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCreateAdmin_Duplicate(t *testing.T) {
	svc, _ := newAdminCreator()
	req := auth.RegisterRequest{
		Username: "root", Email: "root@example.com", FirstName: "Root", LastName: "Admin",
	}

	stubPasswords(t, "admin-password", "admin-password", "admin-password", "admin-password")
	require.NoError(t, createAdmin(context.Background(), svc, newPrompter(strings.NewReader(""), &bytes.Buffer{}), req))

	err := createAdmin(context.Background(), svc, newPrompter(strings.NewReader(""), &bytes.Buffer{}), req)
	require.Error(t, err)
	assert.Equal(t, "Username already exists", err.Error())
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer

	assert.ErrorIs(t, run(context.Background(), nil, strings.NewReader(""), &out), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"frobnicate"}, strings.NewReader(""), &out), errUsage)
}

func TestRun_Keygen(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")

	var out bytes.Buffer
	err := run(context.Background(), []string{"keygen", "-private", priv, "-public", pub}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), priv)

	_, err = auth.NewJWTManager(config.JWTConfig{PrivateKeyPath: priv, PublicKeyPath: pub})
	assert.NoError(t, err)
}
