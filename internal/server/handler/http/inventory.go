package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HorosCase/internal/middleware"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InventoryService lists, sells and gifts items.
type InventoryService interface {
	List(ctx context.Context, userID string, filter models.InventoryFilter) ([]models.InventoryItem, error)
	Sell(ctx context.Context, userID, itemID string) (*service.SellResult, error)
	Gift(ctx context.Context, userID, itemID, recipient string) (*models.InventoryItem, error)
}

// InventoryHandler serves the caller's inventory.
type InventoryHandler struct {
	InventoryService InventoryService
	Log              *zap.Logger
}

// GiftRequest is the JSON payload of POST /api/inventory/{itemID}/gift.
type GiftRequest struct {
	Recipient string `json:"recipient" validate:"required,max=254"`
}

// List handles GET /api/inventory?filter=.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseInventoryFilter(r.URL.Query().Get("filter"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.InventoryService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), filter)
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Sell handles POST /api/inventory/{itemID}/sell.
func (h *InventoryHandler) Sell(w http.ResponseWriter, r *http.Request) {
	res, err := h.InventoryService.Sell(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "itemID"))
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Gift handles POST /api/inventory/{itemID}/gift.
func (h *InventoryHandler) Gift(w http.ResponseWriter, r *http.Request) {
	var req GiftRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	item, err := h.InventoryService.Gift(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "itemID"), req.Recipient)
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}
