// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/nthalt/user-api/internal/core"
)

type RegisterRequest struct {
	Username  string `json:"username"   validate:"required,max=64,username"`
	Password  string `json:"password"   validate:"required,max=128"`
	Email     string `json:"email"      validate:"required,max=120,email_addr"`
	FirstName string `json:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name"  validate:"required,max=64"`
}

// Trim strips surrounding whitespace from every field except the password.
func (r *RegisterRequest) Trim() {
	core.TrimFields(&r.Username, &r.Email, &r.FirstName, &r.LastName)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=120"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"        validate:"required,max=100"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password"     validate:"required,max=128"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

const (
	MsgUserCreated     = "User created successfully"
	MsgResetRequested  = "If an account with that email exists, a password reset link has been sent"
	MsgPasswordReset   = "Password has been reset successfully"
	MsgPasswordChanged = "Password changed successfully"
)
