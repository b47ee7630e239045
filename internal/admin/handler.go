// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/nthalt/user-api/internal/core"
)

// Pool is the connection pool being reported on. *core.Database
// satisfies it.
type Pool interface {
	Stats() sql.DBStats
	Ping(ctx context.Context) error
}

type UserCounter interface {
	CountByRole(ctx context.Context) (map[string]int, error)
}

// Sources feeds the stats endpoints. Either field may be nil, in which
// case that section is omitted.
type Sources struct {
	Pool  Pool
	Users UserCounter
}

type Handler struct {
	src Sources
}

func NewHandler(src Sources) *Handler {
	return &Handler{src: src}
}

// RegisterRoutes mounts /admin behind both middlewares.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator, adminOnly)

		r.Get("/stats", h.Overview)
		r.Get("/stats/db", h.DatabaseStats)
		r.Get("/stats/runtime", h.RuntimeStats)
		r.Get("/stats/users", h.UserStats)
	})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	users, err := h.countUsers(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, OverviewResponse{
		Users:    users,
		Database: h.poolStatus(r.Context()),
		Runtime:  snapshotRuntime(),
	})
}

func (h *Handler) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	status := h.poolStatus(r.Context())
	if status == nil {
		core.NotFound(w, "database pool")
		return
	}
	core.OK(w, status)
}

func (h *Handler) RuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, snapshotRuntime())
}

func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	users, err := h.countUsers(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if users == nil {
		core.NotFound(w, "user stats")
		return
	}
	core.OK(w, users)
}

func (h *Handler) countUsers(ctx context.Context) (*UserCounts, error) {
	if h.src.Users == nil {
		return nil, nil
	}

	byRole, err := h.src.Users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}

	counts := &UserCounts{ByRole: byRole}
	for _, n := range byRole {
		counts.Total += n
	}
	return counts, nil
}

func (h *Handler) poolStatus(ctx context.Context) *PoolStatus {
	if h.src.Pool == nil {
		return nil
	}

	s := h.src.Pool.Stats()
	return &PoolStatus{
		Reachable:    h.src.Pool.Ping(ctx) == nil,
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration.String(),
	}
}

func snapshotRuntime() RuntimeSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeSnapshot{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		Sys:        mem.Sys,
		NumGC:      mem.NumGC,
	}
}

type OverviewResponse struct {
	Users    *UserCounts     `json:"users,omitempty"`
	Database *PoolStatus     `json:"database,omitempty"`
	Runtime  RuntimeSnapshot `json:"runtime"`
}

type UserCounts struct {
	Total  int            `json:"total"`
	ByRole map[string]int `json:"by_role"`
}

type PoolStatus struct {
	Reachable    bool   `json:"reachable"`
	MaxOpen      int    `json:"max_open"`
	Open         int    `json:"open"`
	InUse        int    `json:"in_use"`
	Idle         int    `json:"idle"`
	WaitCount    int64  `json:"wait_count"`
	WaitDuration string `json:"wait_duration"`
}

type RuntimeSnapshot struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	Sys        uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
}
