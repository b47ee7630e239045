// AngelaMos | 2026
// app.go

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nthalt/user-api/internal/admin"
	"github.com/nthalt/user-api/internal/auth"
	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/health"
	"github.com/nthalt/user-api/internal/middleware"
	"github.com/nthalt/user-api/internal/user"
)

// Stores are the persistence handles the services run on. Production
// binds them to Postgres; tests bind them to an in-memory store.
type Stores struct {
	UserRepo user.Repository
	UserTx   user.TxRunner
	AuthRepo auth.Repository
	AuthTx   auth.TxRunner
}

type Services struct {
	Users *user.Service
	Auth  *auth.Service
	JWT   *auth.JWTManager
}

func NewServices(
	cfg *config.Config,
	stores Stores,
	jwtManager *auth.JWTManager,
	notifier auth.ResetNotifier,
	logger *slog.Logger,
) *Services {
	userSvc := user.NewService(stores.UserRepo, stores.UserTx)

	authSvc := auth.NewService(auth.ServiceDeps{
		Repo:     stores.AuthRepo,
		Tx:       stores.AuthTx,
		JWT:      jwtManager,
		Users:    userSvc,
		Resets:   auth.NewResetTokenManager(stores.AuthRepo),
		Policy:   auth.NewPasswordPolicy(cfg.Password),
		Notifier: notifier,
		Logger:   logger,
	})

	return &Services{
		Users: userSvc,
		Auth:  authSvc,
		JWT:   jwtManager,
	}
}

type RouterDeps struct {
	Config   *config.Config
	Services *Services
	Health   *health.Handler
	Admin    *admin.Handler
	Logger   *slog.Logger
}

// Mount installs the middleware chain and the full routing table on r.
func Mount(r chi.Router, d RouterDeps) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.SecurityHeaders(d.Config.IsProduction()))
	r.Use(middleware.CORS(d.Config.CORS))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if d.Health != nil {
		d.Health.RegisterRoutes(r)
	}

	r.Get("/.well-known/jwks.json", d.Services.JWT.JWKSHandler())

	authenticator := middleware.Authenticator(d.Services.JWT, d.Services.Users)

	auth.NewHandler(d.Services.Auth).RegisterRoutes(r, authenticator)
	user.NewHandler(d.Services.Users).RegisterRoutes(r, authenticator)

	if d.Admin != nil {
		d.Admin.RegisterRoutes(r, authenticator, middleware.RequireAdmin)
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	code := "NOT_FOUND"
	if status == http.StatusMethodNotAllowed {
		code = "METHOD_NOT_ALLOWED"
	}
	core.JSON(w, status, core.ErrorResponse{Code: code, Message: message})
}
