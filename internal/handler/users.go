package handler

import (
	"net/http"

	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/service"
	"prstocks-api/pkg/response"
)

// UserHandler handles user and login requests.
type UserHandler struct {
	userService *service.UserService
	log         *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, users)
}

// Create handles POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.UserCreate
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	created, err := h.userService.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, created)
}

// Delete handles DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Message(w, "User deleted successfully")
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in model.DeviceLogin
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.userService.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, result)
}

// Verify handles POST /api/users/verify
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var in model.UserVerify
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.userService.Verify(r.Context(), in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, map[string]bool{"valid": true})
}
