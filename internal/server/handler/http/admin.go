package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminService backs the admin dashboard.
type AdminService interface {
	Stats(ctx context.Context) (models.Stats, error)
	ResetCounter(ctx context.Context, name string) error
	Fairness(ctx context.Context, caseID string) (models.FairnessReport, error)
}

// AdminHandler serves admin-only endpoints. Routes must be wrapped with
// middleware.RequireAdmin.
type AdminHandler struct {
	AdminService AdminService
	Log          *zap.Logger
}

// ResetRequest is the JSON payload of POST /api/admin/stats/reset.
type ResetRequest struct {
	Counter string `json:"counter" validate:"required,oneof=cases_opened traders items_sold"`
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.AdminService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// ResetCounter handles POST /api/admin/stats/reset.
func (h *AdminHandler) ResetCounter(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.AdminService.ResetCounter(r.Context(), req.Counter); err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Fairness handles GET /api/admin/cases/{id}/fairness.
func (h *AdminHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	rep, err := h.AdminService.Fairness(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
