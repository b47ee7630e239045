// AngelaMos | 2026
// entity.go

package user

import (
	"fmt"
	"time"

	"github.com/nthalt/user-api/internal/core"
)

type User struct {
	ID                      int64      `db:"id"`
	Username                string     `db:"username"`
	Email                   string     `db:"email"`
	FirstName               string     `db:"first_name"`
	LastName                string     `db:"last_name"`
	PasswordHash            string     `db:"password_hash"`
	Role                    string     `db:"role"`
	IsActive                bool       `db:"is_active"`
	CreatedAt               time.Time  `db:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at"`
	PasswordResetToken      *string    `db:"password_reset_token"`
	PasswordResetExpiration *time.Time `db:"password_reset_expiration"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetPassword replaces the stored hash. The plaintext is not retained.
func (u *User) SetPassword(plaintext string) error {
	hash, err := core.HashPassword(plaintext)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash. A
// missing or malformed hash never matches and is returned as
// core.ErrCorruptHash.
func (u *User) CheckPassword(plaintext string) (bool, error) {
	return core.VerifyPassword(plaintext, u.PasswordHash)
}

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
