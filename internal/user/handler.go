// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListUsers)
		r.Get("/{userID:[0-9]+}", h.GetUser)
		r.Put("/{userID:[0-9]+}", h.UpdateUser)
		r.Delete("/{userID:[0-9]+}", h.DeleteUser)
		r.Post("/promote/{userID:[0-9]+}", h.PromoteUser)
	})
}

// ListUsers returns a page of users (admin only).
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", DefaultPageSize),
		Search:   r.URL.Query().Get("search"),
	}
	params.Normalize()

	users, total, err := h.service.List(r.Context(), actor, params)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, UserListResponse{
		Users:    ToUserResponseList(users),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Trim()
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}
	if req.Empty() {
		core.BadRequest(w, "no fields to update")
		return
	}

	user, err := h.service.Update(r.Context(), actor, id, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

// DeleteUser removes a non-admin user (admin only).
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

// PromoteUser grants the Admin role (admin only).
func (h *Handler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.Promote(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(user))
}

func actorFrom(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.UnauthorizedError(""))
		return Actor{}, false
	}
	return Actor{ID: p.ID, Role: p.Role}, true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id < 1 {
		core.NotFound(w, "user")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "insufficient permissions")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.ConflictError(core.DuplicateMessage(err)))
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
