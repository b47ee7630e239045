// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nthalt/user-api/internal/core"
)

const probeTimeout = 3 * time.Second

// Phase is the lifecycle stage reported by the probes.
type Phase int32

const (
	Serving Phase = iota
	Starting
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "not_ready"
	case Draining:
		return "shutting_down"
	default:
		return "ok"
	}
}

type Checker interface {
	Ping(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type Handler struct {
	deps    map[string]Checker
	names   []string
	phase   atomic.Int32
	started time.Time
}

// NewHandler starts in the Serving phase. A nil dependency always
// reports unhealthy.
func NewHandler(deps map[string]Checker) *Handler {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	slices.Sort(names)

	return &Handler{deps: deps, names: names, started: time.Now()}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) SetPhase(p Phase) {
	h.phase.Store(int32(p))
}

func (h *Handler) Phase() Phase {
	return Phase(h.phase.Load())
}

// Liveness only fails once draining has begun.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if p := h.Phase(); p == Draining {
		respond(w, http.StatusServiceUnavailable, StatusResponse{Status: p.String()})
		return
	}
	respond(w, http.StatusOK, StatusResponse{Status: Serving.String()})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if p := h.Phase(); p != Serving {
		respond(w, http.StatusServiceUnavailable, StatusResponse{Status: p.String()})
		return
	}

	results := h.probeAll(r.Context())

	resp := ReadinessResponse{
		Status: "ok",
		Uptime: int64(time.Since(h.started).Seconds()),
		Checks: results,
	}
	status := http.StatusOK
	if slices.ContainsFunc(results, func(c HealthCheck) bool { return !c.Healthy }) {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	respond(w, status, resp)
}

func (h *Handler) probeAll(ctx context.Context) []HealthCheck {
	results := make([]HealthCheck, len(h.names))

	var wg sync.WaitGroup
	for i, name := range h.names {
		wg.Go(func() {
			results[i] = probe(ctx, name, h.deps[name])
		})
	}
	wg.Wait()

	return results
}

// probe never exposes the dependency's error text.
func probe(ctx context.Context, name string, dep Checker) HealthCheck {
	if dep == nil {
		return HealthCheck{Name: name, Message: "not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := dep.Ping(ctx)

	result := HealthCheck{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start).Round(time.Microsecond).String(),
	}
	if err != nil {
		result.Message = "ping failed"
	}
	return result
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Cache-Control", "no-store")
	core.JSON(w, status, body)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Uptime int64         `json:"uptime_seconds"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
