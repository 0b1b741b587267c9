package handler

import (
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"prstocks-api/internal/middleware"
	"prstocks-api/internal/model"
	"prstocks-api/internal/service"
	"prstocks-api/pkg/apierror"
	"prstocks-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	adminService    *service.AdminService
	databaseService *service.DatabaseService
	log             *zap.Logger
	startTime       time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(adminService *service.AdminService, databaseService *service.DatabaseService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		databaseService: databaseService,
		log:             log,
		startTime:       time.Now(),
	}
}

// AdminVerifyResponse is the body of POST /api/users/admin/verify. It is
// returned with 200 whether or not the password matched.
type AdminVerifyResponse struct {
	Success   bool       `json:"success"`
	Verified  bool       `json:"verified"`
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Verify handles POST /api/users/admin/verify
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var in model.AdminVerify
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.adminService.Verify(r.Context(), in.AdminPassword)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if !result.Verified {
		response.Raw(w, http.StatusOK, AdminVerifyResponse{
			Message: "Invalid admin password",
		})
		return
	}

	response.Raw(w, http.StatusOK, AdminVerifyResponse{
		Success:   true,
		Verified:  true,
		Message:   "Admin verification successful",
		Token:     result.Token,
		ExpiresAt: &result.ExpiresAt,
	})
}

// Logout handles POST /api/users/admin/logout by revoking the presented token.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(middleware.AdminTokenHeader))
	if token == "" {
		response.Error(w, apierror.BadRequest(middleware.AdminTokenHeader+" header is required"))
		return
	}

	if err := h.adminService.RevokeToken(r.Context(), token); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Message(w, "Admin session ended")
}

// ClearData handles POST /api/admin/clear-data
func (h *AdminHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetAdminSession(r.Context()); session != nil {
		h.log.Info("clear-data requested", zap.Time("session_issued_at", session.IssuedAt))
	}

	result, err := h.databaseService.ClearAll(r.Context())
	if err != nil {
		h.log.Error("clear-data failed", zap.Error(err), zap.Any("cleared", result))

		detail := "Failed to clear data"
		var clearErr *service.ClearError
		if errors.As(err, &clearErr) {
			detail += ": " + clearErr.Store + " store could not be cleared"
		}
		response.Error(w, apierror.InternalError(detail))
		return
	}

	response.Raw(w, http.StatusOK, struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Data    *model.ClearResult `json:"data"`
	}{
		Success: true,
		Message: "All data cleared successfully",
		Data:    result,
	})
}

// DatabaseInfo handles GET /api/admin/database-info
func (h *AdminHandler) DatabaseInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.databaseService.Info(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, info)
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().UTC().Format(time.RFC3339)
	stats["drivers"] = h.databaseService.Drivers()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	response.OK(w, stats)
}
