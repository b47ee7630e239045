// AngelaMos | 2026
// fixtures.go

package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/config"
)

func Config(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")
	require.NoError(t, auth.GenerateKeyPair(privatePath, publicPath))

	return &config.Config{
		App: config.AppConfig{
			Name:        "user-api",
			Environment: "development",
		},
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		JWT: config.JWTConfig{
			PrivateKeyPath:    privatePath,
			PublicKeyPath:     publicPath,
			AccessTokenExpire: time.Hour,
			Issuer:            "user-api",
			Audience:          "user-api",
		},
		Password: config.PasswordConfig{
			MinLength: config.MinPasswordLength,
		},
		Reset: config.ResetConfig{
			URL: "http://localhost:3000/reset-password",
		},
		Mail: config.MailConfig{
			Provider:    config.MailProviderLog,
			SendTimeout: time.Second,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}
}

func JWTManager(t *testing.T, cfg *config.Config) *auth.JWTManager {
	t.Helper()

	m, err := auth.NewJWTManager(cfg.JWT)
	require.NoError(t, err)
	return m
}

type SentReset struct {
	Email string
	Token string
}

// Notifier records reset notifications synchronously.
type Notifier struct {
	mu   sync.Mutex
	sent []SentReset
}

func (n *Notifier) NotifyPasswordReset(_ context.Context, email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentReset{Email: email, Token: token})
}

func (n *Notifier) Sent() []SentReset {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentReset(nil), n.sent...)
}

func (n *Notifier) Last() (SentReset, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return SentReset{}, false
	}
	return n.sent[len(n.sent)-1], true
}

var _ auth.ResetNotifier = (*Notifier)(nil)
