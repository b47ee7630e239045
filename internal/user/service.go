// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"

	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/middleware"
)

const tracerName = "user"

type Service struct {
	repo Repository
	tx   TxRunner
}

func NewService(repo Repository, tx TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

func (s *Service) GetByID(
	ctx context.Context,
	id int64,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByUsername(
	ctx context.Context,
	username string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) ExistsByUsername(
	ctx context.Context,
	username string,
) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

func (s *Service) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

// Create hashes in.Password and inserts the record. Duplicate usernames or
// emails surface as core.ErrDuplicateKey wrapping the specific sentinel.
func (s *Service) Create(
	ctx context.Context,
	in auth.NewUser,
) (*auth.UserInfo, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !IsValidRole(role) {
		return nil, fmt.Errorf("create user: invalid role %q: %w", role, core.ErrInvalidInput)
	}

	user := &User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      role,
		IsActive:  true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// LoadPrincipal backs the bearer authenticator. Disabled accounts are
// refused even while their tokens are still within expiry.
func (s *Service) LoadPrincipal(
	ctx context.Context,
	id int64,
) (*middleware.Principal, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, fmt.Errorf("load principal: %w", core.ErrForbidden)
	}

	return &middleware.Principal{ID: user.ID, Role: user.Role}, nil
}

func (s *Service) List(
	ctx context.Context,
	actor Actor,
	params ListUsersParams,
) ([]User, int, error) {
	if !CanList(actor) {
		return nil, 0, fmt.Errorf("list users: %w", core.ErrForbidden)
	}

	params.Normalize()
	return s.repo.List(ctx, params)
}

func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*User, error) {
	if !CanView(actor, id) {
		return nil, fmt.Errorf("get user: %w", core.ErrForbidden)
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(
	ctx context.Context,
	actor Actor,
	id int64,
	req UpdateUserRequest,
) (*User, error) {
	if !CanUpdate(actor, id) {
		return nil, fmt.Errorf("update user: %w", core.ErrForbidden)
	}

	ctx, span := core.StartSpan(ctx, tracerName, "user.update",
		core.UserIDAttr(id))
	defer span.End()

	var updated *User
	err := s.tx(ctx, func(repo Repository) error {
		user, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := applyUpdate(ctx, repo, actor, user, req); err != nil {
			return err
		}

		if err := repo.Update(ctx, user); err != nil {
			return err
		}

		updated = user
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return updated, nil
}

func applyUpdate(
	ctx context.Context,
	repo Repository,
	actor Actor,
	user *User,
	req UpdateUserRequest,
) error {
	if req.Role != nil && *req.Role != user.Role {
		if !CanChangeRole(actor) {
			return fmt.Errorf("change role: %w", core.ErrForbidden)
		}
		if user.IsAdmin() {
			return core.ValidationError("admin users cannot be demoted")
		}
		user.Role = *req.Role
	}

	if req.Username != nil && *req.Username != user.Username {
		exists, err := repo.ExistsByUsername(ctx, *req.Username)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %w", core.ErrDuplicateKey, core.ErrUsernameTaken)
		}
		user.Username = *req.Username
	}

	if req.Email != nil && *req.Email != user.Email {
		exists, err := repo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %w", core.ErrDuplicateKey, core.ErrEmailTaken)
		}
		user.Email = *req.Email
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	if !CanDeleteAny(actor) {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	ctx, span := core.StartSpan(ctx, tracerName, "user.delete",
		core.UserIDAttr(id))
	defer span.End()

	err := s.tx(ctx, func(repo Repository) error {
		target, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !CanDelete(actor, target.Role) {
			return fmt.Errorf("delete admin user: %w", core.ErrForbidden)
		}

		return repo.Delete(ctx, id)
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return err
	}

	return nil
}

// Promote grants the Admin role. Promoting an existing Admin is a no-op.
func (s *Service) Promote(ctx context.Context, actor Actor, id int64) (*User, error) {
	if !CanPromote(actor) {
		return nil, fmt.Errorf("promote user: %w", core.ErrForbidden)
	}

	ctx, span := core.StartSpan(ctx, tracerName, "user.promote",
		core.UserIDAttr(id))
	defer span.End()

	var promoted *User
	err := s.tx(ctx, func(repo Repository) error {
		user, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !user.IsAdmin() {
			user.Role = RoleAdmin
			if err := repo.Update(ctx, user); err != nil {
				return err
			}
		}

		promoted = user
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return promoted, nil
}

func (s *Service) CountByRole(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByRole(ctx)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

var (
	_ auth.UserProvider          = (*Service)(nil)
	_ middleware.PrincipalLoader = (*Service)(nil)
)
