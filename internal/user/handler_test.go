// AngelaMos | 2026
// handler_test.go

package user_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nthalt/user-api/internal/core"
	"github.com/nthalt/user-api/internal/middleware"
	"github.com/nthalt/user-api/internal/user"
)

const actorHeader = "X-Test-Actor"

// headerAuth stands in for the bearer authenticator: the actor is taken
// from "<id>:<role>" in actorHeader.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(actorHeader)
		if raw == "" {
			core.Unauthorized(w, "missing authorization token")
			return
		}
		idStr, role, _ := strings.Cut(raw, ":")
		id, _ := strconv.ParseInt(idStr, 10, 64)
		ctx := middleware.WithPrincipal(r.Context(), &middleware.Principal{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type handlerEnv struct {
	svc    *user.Service
	router chi.Router
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	svc, _ := newService(t)
	r := chi.NewRouter()
	user.NewHandler(svc).RegisterRoutes(r, headerAuth)
	return &handlerEnv{svc: svc, router: r}
}

func (e *handlerEnv) do(method, path, actor, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func as(id int64, role string) string {
	return strconv.FormatInt(id, 10) + ":" + role
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) core.ErrorResponse {
	t.Helper()
	var body core.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.do(http.MethodGet, "/users/", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_ListUsers(t *testing.T) {
	env := newHandlerEnv(t)
	admin := seed(t, env.svc, "admin", user.RoleAdmin)
	alice := seed(t, env.svc, "alice", user.RoleUser)

	w := env.do(http.MethodGet, "/users/", as(alice.ID, alice.Role), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/users/?page=1&page_size=1", as(admin.ID, admin.Role), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp user.UserListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.PageSize)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "admin", resp.Users[0].Username)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestHandler_GetUser(t *testing.T) {
	env := newHandlerEnv(t)
	alice := seed(t, env.svc, "alice", user.RoleUser)
	bob := seed(t, env.svc, "bob", user.RoleUser)

	w := env.do(http.MethodGet, "/users/"+strconv.FormatInt(alice.ID, 10), as(alice.ID, alice.Role), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got user.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, user.RoleUser, got.Role)

	w = env.do(http.MethodGet, "/users/"+strconv.FormatInt(bob.ID, 10), as(alice.ID, alice.Role), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/users/999", as(1, user.RoleAdmin), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", decodeError(t, w).Message)

	w = env.do(http.MethodGet, "/users/abc", as(alice.ID, alice.Role), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_UpdateUser(t *testing.T) {
	env := newHandlerEnv(t)
	alice := seed(t, env.svc, "alice", user.RoleUser)
	seed(t, env.svc, "bob", user.RoleUser)
	path := "/users/" + strconv.FormatInt(alice.ID, 10)
	actor := as(alice.ID, alice.Role)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "update names", body: `{"first_name":"  Alicia ","last_name":"Jones"}`, status: http.StatusOK},
		{name: "empty body", body: `{}`, status: http.StatusBadRequest, message: "no fields to update"},
		{name: "malformed", body: `{"first_name":`, status: http.StatusBadRequest},
		{name: "blank username", body: `{"username":"   "}`, status: http.StatusBadRequest,
			message: "username is required and cannot be empty"},
		{name: "blank first name", body: `{"first_name":"   "}`, status: http.StatusBadRequest,
			message: "first_name is required and cannot be empty"},
		{name: "empty last name", body: `{"last_name":""}`, status: http.StatusBadRequest,
			message: "last_name is required and cannot be empty"},
		{name: "bad email", body: `{"email":"nope"}`, status: http.StatusBadRequest, message: "Invalid email address"},
		{name: "taken username", body: `{"username":"bob"}`, status: http.StatusBadRequest, message: "Username already exists"},
		{name: "self promotion", body: `{"role":"Admin"}`, status: http.StatusForbidden},
		{name: "unknown role", body: `{"role":"root"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPut, path, actor, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeError(t, w).Message)
			}
		})
	}

	w := env.do(http.MethodGet, path, actor, "")
	var got user.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Alicia", got.FirstName)
	assert.Equal(t, "Jones", got.LastName)
	assert.Equal(t, user.RoleUser, got.Role)
}

func TestHandler_DeleteUser(t *testing.T) {
	env := newHandlerEnv(t)
	admin := seed(t, env.svc, "admin", user.RoleAdmin)
	other := seed(t, env.svc, "other", user.RoleAdmin)
	alice := seed(t, env.svc, "alice", user.RoleUser)

	w := env.do(http.MethodDelete, "/users/"+strconv.FormatInt(alice.ID, 10), as(alice.ID, alice.Role), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, "/users/"+strconv.FormatInt(other.ID, 10), as(admin.ID, admin.Role), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, "/users/"+strconv.FormatInt(alice.ID, 10), as(admin.ID, admin.Role), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(http.MethodDelete, "/users/"+strconv.FormatInt(alice.ID, 10), as(admin.ID, admin.Role), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_PromoteUser(t *testing.T) {
	env := newHandlerEnv(t)
	admin := seed(t, env.svc, "admin", user.RoleAdmin)
	alice := seed(t, env.svc, "alice", user.RoleUser)
	path := "/users/promote/" + strconv.FormatInt(alice.ID, 10)

	w := env.do(http.MethodPost, path, as(alice.ID, alice.Role), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, path, as(admin.ID, admin.Role), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got user.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, user.RoleAdmin, got.Role)

	w = env.do(http.MethodPost, "/users/promote/999", as(admin.ID, admin.Role), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
