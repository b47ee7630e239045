// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nthalt/user-api/internal/core"
)

const tracerName = "auth"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type UserInfo struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser carries a plaintext password; the provider hashes it.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

type UserProvider interface {
	GetByID(ctx context.Context, id int64) (*UserInfo, error)
	GetByUsername(ctx context.Context, username string) (*UserInfo, error)
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, in NewUser) (*UserInfo, error)
}

// ResetNotifier delivers reset tokens. Implementations must not block the
// caller on the mail transport.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string)
}

type ServiceDeps struct {
	Repo     Repository
	Tx       TxRunner
	JWT      *JWTManager
	Users    UserProvider
	Resets   *ResetTokenManager
	Policy   PasswordPolicy
	Notifier ResetNotifier
	Logger   *slog.Logger
}

type Service struct {
	repo     Repository
	tx       TxRunner
	jwt      *JWTManager
	users    UserProvider
	resets   *ResetTokenManager
	policy   PasswordPolicy
	notifier ResetNotifier
	logger   *slog.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resets := deps.Resets
	if resets == nil {
		resets = NewResetTokenManager(deps.Repo)
	}

	return &Service{
		repo:     deps.Repo,
		tx:       deps.Tx,
		jwt:      deps.JWT,
		users:    deps.Users,
		resets:   resets,
		policy:   deps.Policy,
		notifier: deps.Notifier,
		logger:   logger,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	return s.CreateUser(ctx, req, "")
}

// CreateUser validates the password, checks uniqueness and stores the
// user with role. An empty role means the default User role.
func (s *Service) CreateUser(
	ctx context.Context,
	req RegisterRequest,
	role string,
) (*UserInfo, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.create_user")
	defer span.End()

	if err := s.policy.Validate(req.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, core.ConflictError(core.DuplicateMessage(core.ErrUsernameTaken))
	}

	exists, err = s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, core.ConflictError(core.DuplicateMessage(core.ErrEmailTaken))
	}

	user, err := s.users.Create(ctx, NewUser{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      role,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.ConflictError(core.DuplicateMessage(err))
		}
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(core.UserIDAttr(user.ID))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.login")
	defer span.End()

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash unreadable",
			"user_id", user.ID,
			"error", err,
		)
		return nil, ErrInvalidCredentials
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if newHash != "" {
		if err := s.repo.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	issued, err := s.jwt.CreateAccessToken(user.ID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwt.AccessTokenTTL().Seconds()),
	}, nil
}

// ForgotPassword never reveals whether email belongs to an account. Only a
// failure to persist the token is reported.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.forgot_password")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive {
		return nil
	}

	token, err := s.resets.Issue(ctx, user.ID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return err
	}

	s.notifier.NotifyPasswordReset(ctx, user.Email, token)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.reset_password")
	defer span.End()

	if err := s.policy.Validate(req.NewPassword); err != nil {
		return err
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.tx(ctx, func(repo Repository) error {
		resets := s.resets.WithRepository(repo)

		stored, err := repo.FindByResetToken(ctx, req.Token)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}

		if !resets.Verify(stored, req.Token) {
			return ErrInvalidResetToken
		}

		if err := repo.UpdatePassword(ctx, stored.UserID, hash); err != nil {
			return err
		}

		return resets.Clear(ctx, stored.UserID)
	})
	if err != nil && !errors.Is(err, ErrInvalidResetToken) {
		core.SetSpanError(ctx, err)
	}
	return err
}

// ChangePassword also discards any outstanding reset token. Access tokens
// already issued stay valid until they expire.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID int64,
	req ChangePasswordRequest,
) error {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.change_password",
		core.UserIDAttr(userID))
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash unreadable",
			"user_id", user.ID,
			"error", err,
		)
		return ErrWrongPassword
	}
	if !valid {
		return ErrWrongPassword
	}

	if err := s.policy.Validate(req.NewPassword); err != nil {
		return err
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.tx(ctx, func(repo Repository) error {
		if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return s.resets.WithRepository(repo).Clear(ctx, userID)
	})
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*UserInfo, error) {
	return s.users.GetByID(ctx, userID)
}
