// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/nthalt/user-api/internal/core"
)

// UpdateUserRequest holds a partial update. Absent fields are left as is;
// present string fields must be non-empty after trimming.
type UpdateUserRequest struct {
	Username  *string `json:"username"   validate:"omitnil,min=1,max=64,username"`
	Email     *string `json:"email"      validate:"omitnil,min=1,max=120,email_addr"`
	FirstName *string `json:"first_name" validate:"omitnil,min=1,max=64"`
	LastName  *string `json:"last_name"  validate:"omitnil,min=1,max=64"`
	IsActive  *bool   `json:"is_active"`
	Role      *string `json:"role"       validate:"omitnil,oneof=Admin User"`
}

func (r *UpdateUserRequest) Trim() {
	core.TrimFields(r.Username, r.Email, r.FirstName, r.LastName, r.Role)
}

func (r *UpdateUserRequest) Empty() bool {
	return r.Username == nil && r.Email == nil && r.FirstName == nil &&
		r.LastName == nil && r.IsActive == nil && r.Role == nil
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

type UserListResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
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

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
