// AngelaMos | 2026
// reset.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/core"
)

const resetTokenBytes = 32

// ResetTokenManager issues single-use password reset tokens stored on the
// user row. Issuing a new token replaces any outstanding one.
type ResetTokenManager struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewResetTokenManager(repo Repository) *ResetTokenManager {
	return &ResetTokenManager{
		repo: repo,
		ttl:  config.ResetTokenTTL,
		now:  time.Now,
	}
}

// WithRepository returns a copy bound to repo, typically a transaction.
func (m *ResetTokenManager) WithRepository(repo Repository) *ResetTokenManager {
	clone := *m
	clone.repo = repo
	return &clone
}

func (m *ResetTokenManager) Issue(ctx context.Context, userID int64) (string, error) {
	for range 3 {
		token, err := core.GenerateSecureToken(resetTokenBytes)
		if err != nil {
			return "", fmt.Errorf("issue reset token: %w", err)
		}

		err = m.repo.SetResetToken(ctx, userID, token, m.now().Add(m.ttl))
		if errors.Is(err, core.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("issue reset token: %w", err)
		}

		return token, nil
	}

	return "", fmt.Errorf("issue reset token: %w", core.ErrDuplicateKey)
}

// Verify reports whether token matches the stored one and has not expired.
func (m *ResetTokenManager) Verify(stored *ResetToken, token string) bool {
	if stored == nil || stored.IsCleared() || token == "" {
		return false
	}

	if !core.ConstantTimeEqual(*stored.Token, token) {
		return false
	}

	return !stored.IsExpired(m.now())
}

func (m *ResetTokenManager) Clear(ctx context.Context, userID int64) error {
	if err := m.repo.ClearResetToken(ctx, userID); err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}
