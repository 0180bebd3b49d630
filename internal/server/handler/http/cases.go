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

// CaseService lists the catalog and opens cases.
type CaseService interface {
	List(game string) []models.Case
	Get(id string) (models.Case, error)
	Open(ctx context.Context, userID, caseID string) (*service.OpenResult, error)
}

// CaseHandler serves the catalog and the case-opening transaction.
type CaseHandler struct {
	CaseService CaseService
	Log         *zap.Logger
}

// List handles GET /api/cases?game=.
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.CaseService.List(r.URL.Query().Get("game")))
}

// Get handles GET /api/cases/{id}.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	cs, err := h.CaseService.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, cs)
}

// Open handles POST /api/cases/{id}/open. The price, the draw and the
// awarded item are all decided server-side.
func (h *CaseHandler) Open(w http.ResponseWriter, r *http.Request) {
	res, err := h.CaseService.Open(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
