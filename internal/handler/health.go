package handler

import (
	"context"
	"net/http"
	"time"

	"prstocks-api/internal/cache"
	"prstocks-api/internal/repository"
	"prstocks-api/pkg/response"
)

// Handler serves the unauthenticated service endpoints.
type Handler struct {
	name     string
	version  string
	stores   []repository.Store
	sessions cache.Cache
}

// New creates a new handler. sessions may be nil when admin sessions are
// not in use.
func New(name, version string, stores []repository.Store, sessions cache.Cache) *Handler {
	return &Handler{name: name, version: version, stores: stores, sessions: sessions}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Version   string    `json:"version"`
}

// Health handles GET /api/health. It does not touch the stores.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Message:   h.name,
		Timestamp: time.Now().UTC(),
		Database:  h.databaseSummary(),
		Version:   h.version,
	})
}

func (h *Handler) databaseSummary() string {
	summary := ""
	for i, st := range h.stores {
		info := st.Describe()
		if i > 0 {
			summary += ", "
		}
		summary += info.Name + "=" + info.Driver
	}
	return summary
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ready handles GET /api/ready by pinging every store and the admin
// session cache.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make([]Check, 0, len(h.stores))
	allReady := true
	for _, st := range h.stores {
		check := Check{Name: st.Describe().Name, Status: "ok"}
		if err := st.Ping(ctx); err != nil {
			check.Status = "error"
			check.Error = err.Error()
			allReady = false
		}
		checks = append(checks, check)
	}

	if h.sessions != nil {
		check := Check{Name: "admin-sessions", Status: "ok"}
		if err := h.sessions.Ping(ctx); err != nil {
			check.Status = "error"
			check.Error = err.Error()
			allReady = false
		}
		checks = append(checks, check)
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}

	response.JSON(w, status, ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}
