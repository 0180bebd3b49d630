package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atinyakov/HorosCase/internal/middleware"
	"github.com/atinyakov/HorosCase/internal/models"
	"go.uber.org/zap"
)

// WalletService credits deposits and lists the ledger.
type WalletService interface {
	Deposit(ctx context.Context, userID string, amount int64) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
}

// WalletHandler serves balance operations.
type WalletHandler struct {
	WalletService WalletService
	Log           *zap.Logger
}

// DepositRequest is the JSON payload of POST /api/wallet/deposit.
type DepositRequest struct {
	AmountCents int64 `json:"amountCents" validate:"required,min=1,max=10000000"`
}

// Deposit handles POST /api/wallet/deposit.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	balance, err := h.WalletService.Deposit(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.AmountCents)
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"balanceCents": balance})
}

// History handles GET /api/wallet/history?limit=.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	entries, err := h.WalletService.History(r.Context(), middleware.GetUserIDFromContext(r.Context()), limit)
	if err != nil {
		respondServiceError(w, h.Log, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
