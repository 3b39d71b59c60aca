package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/clubhub/internal/http/respond"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler returns uptime and dependency status.
type HealthHandler struct {
	startedAt time.Time
	checks    map[string]HealthCheck
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, checks: checks}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	respond.JSON(w, code, status, map[string]any{
		"status":       status,
		"uptime":       time.Since(h.startedAt).Truncate(time.Second).String(),
		"dependencies": deps,
	})
}
