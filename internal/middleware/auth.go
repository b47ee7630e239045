// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nthalt/user-api/internal/core"
)

const RoleAdmin = "Admin"

const authKey contextKey = "auth"

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// PrincipalLoader maps a token subject to the caller's current role, so
// role changes apply to tokens that were already issued.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (*Principal, error)
}

type AccessTokenClaims struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Principal struct {
	ID   int64
	Role string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type authState struct {
	principal *Principal
	claims    *AccessTokenClaims
}

// Authenticator rejects the request unless it carries a valid bearer
// token for an existing, active user.
func Authenticator(verifier TokenVerifier, loader PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, err := authenticate(r, verifier, loader)
			if err != nil {
				core.JSONError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authKey, state)))
		})
	}
}

func authenticate(r *http.Request, verifier TokenVerifier, loader PrincipalLoader) (*authState, error) {
	raw := ExtractToken(r)
	if raw == "" {
		return nil, core.UnauthorizedError("missing authorization token")
	}

	claims, err := verifier.VerifyAccessToken(r.Context(), raw)
	switch {
	case err == nil:
	case core.IsAppError(err):
		return nil, err
	case errors.Is(err, core.ErrTokenExpired):
		return nil, core.TokenExpiredError()
	default:
		return nil, core.TokenInvalidError()
	}

	principal, err := loader.LoadPrincipal(r.Context(), claims.UserID)
	switch {
	case err == nil:
		return &authState{principal: principal, claims: claims}, nil
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnauthorized):
		return nil, core.UnauthorizedError("user no longer exists")
	case errors.Is(err, core.ErrForbidden):
		return nil, core.ForbiddenError("account is disabled")
	default:
		return nil, err
	}
}

// RequireRole must run after Authenticator.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			core.JSONError(w, core.ForbiddenError("insufficient permissions"))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin)(next)
}

// ExtractToken returns the bearer credential or "".
func ExtractToken(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func stateFrom(ctx context.Context) *authState {
	s, _ := ctx.Value(authKey).(*authState)
	return s
}

func GetPrincipal(ctx context.Context) *Principal {
	if s := stateFrom(ctx); s != nil {
		return s.principal
	}
	return nil
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if s := stateFrom(ctx); s != nil {
		return s.claims
	}
	return nil
}

func GetUserID(ctx context.Context) int64 {
	if p := GetPrincipal(ctx); p != nil {
		return p.ID
	}
	return 0
}

func IsAdmin(ctx context.Context) bool {
	return GetPrincipal(ctx).IsAdmin()
}

// WithPrincipal attaches p without claims.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, authKey, &authState{principal: p})
}
