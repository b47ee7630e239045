// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// ResetToken is the reset token pair stored on a users row.
type ResetToken struct {
	UserID    int64      `db:"id"`
	Email     string     `db:"email"`
	Token     *string    `db:"password_reset_token"`
	ExpiresAt *time.Time `db:"password_reset_expiration"`
}

func (t *ResetToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt == nil || !now.Before(*t.ExpiresAt)
}

func (t *ResetToken) IsCleared() bool {
	return t.Token == nil
}
