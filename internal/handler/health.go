package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking dependency health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a HealthHandler. Nil checkers are skipped.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	live := make(map[string]HealthChecker, len(checks))
	for name, c := range checks {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{checks: live}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz checks every registered dependency.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			checks[name] = "unhealthy"
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}
