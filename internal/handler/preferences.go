package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/service"
	"prstocks-api/pkg/apierror"
	"prstocks-api/pkg/response"
)

// PreferenceHandler serves both /api/preferences/user/{username} and the
// legacy /api/preferences/{device_id} routes. The two share one key space:
// a device id is stored exactly as if it were a username.
type PreferenceHandler struct {
	preferenceService *service.PreferenceService
	log               *zap.Logger
}

// NewPreferenceHandler creates a new preference handler.
func NewPreferenceHandler(preferenceService *service.PreferenceService, log *zap.Logger) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService, log: log}
}

// preferenceKey returns whichever key parameter the matched route carries.
func preferenceKey(r *http.Request) (string, error) {
	if key := chi.URLParam(r, "username"); key != "" {
		return key, nil
	}
	if key := chi.URLParam(r, "device_id"); key != "" {
		return key, nil
	}
	return "", apierror.BadRequest("username is required")
}

// Get handles GET on either preference path.
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := preferenceKey(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	pref, err := h.preferenceService.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, pref)
}

// Set handles PUT and POST on either preference path.
func (h *PreferenceHandler) Set(w http.ResponseWriter, r *http.Request) {
	key, err := preferenceKey(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var in model.PreferenceUpdate
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	msg, err := h.preferenceService.Set(r.Context(), key, in.Preferences)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Message(w, msg)
}

// Delete handles DELETE on either preference path.
func (h *PreferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := preferenceKey(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	msg, err := h.preferenceService.Delete(r.Context(), key)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Message(w, msg)
}

// List handles GET /api/preferences/users and GET /api/preferences
func (h *PreferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.preferenceService.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, prefs)
}
