package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/service"
	"prstocks-api/pkg/response"
)

// InventoryHandler handles inventory-related HTTP requests.
type InventoryHandler struct {
	inventoryService *service.InventoryService
	log              *zap.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		log:              log,
	}
}

// List handles GET /api/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventoryService.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, items)
}

// Create handles POST /api/inventory. An existing part number is merged
// rather than duplicated.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.InventoryItemCreate
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.inventoryService.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, result)
}

// Get handles GET /api/inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	item, err := h.inventoryService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, item)
}

// Update handles PUT /api/inventory/{id}. Only fields present in the body
// are written; unknown fields are rejected.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var upd model.InventoryItemUpdate
	if err := decodeJSON(w, r, &upd, true); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if _, err := h.inventoryService.Update(r.Context(), id, upd); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Message(w, "Inventory item updated successfully")
}

// Delete handles DELETE /api/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.inventoryService.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Message(w, "Inventory item deleted successfully")
}

// Statistics handles GET /api/inventory/statistics and /api/inventory/stats
func (h *InventoryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inventoryService.Statistics(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, stats)
}

// Search handles GET /api/inventory/search?q=&category=&subteam=
func (h *InventoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.InventoryFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: q.Get("category"),
		Subteam:  q.Get("subteam"),
	}

	items, err := h.inventoryService.Search(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, items)
}
