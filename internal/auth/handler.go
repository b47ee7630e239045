// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req, req.Trim) {
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}

	core.Message(w, http.StatusCreated, MsgUserCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req, func() { core.TrimFields(&req.Username) }) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req, func() { core.TrimFields(&req.Email) }) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, http.StatusOK, MsgResetRequested)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req, func() { core.TrimFields(&req.Token) }) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}

	core.Message(w, http.StatusOK, MsgPasswordReset)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ChangePasswordRequest
	if !h.decode(w, r, &req, nil) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req); err != nil {
		writeError(w, err)
		return
	}

	core.Message(w, http.StatusOK, MsgPasswordChanged)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

// decode reads the JSON body into dst, applies trim and validates. It
// writes the 400 response itself and reports whether to continue.
func (h *Handler) decode(
	w http.ResponseWriter,
	r *http.Request,
	dst any,
	trim func(),
) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if trim != nil {
		trim()
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func writeError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		core.JSONError(w, core.UnauthorizedError("Invalid credentials"))
	case errors.Is(err, ErrAccountDisabled):
		core.Forbidden(w, "account is disabled")
	case errors.Is(err, ErrInvalidResetToken):
		core.BadRequest(w, "Invalid or expired token")
	case errors.Is(err, ErrWrongPassword):
		core.BadRequest(w, "Current password is incorrect")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}
