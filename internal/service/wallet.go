package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/HorosCase/internal/metrics"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deposit and history bounds.
const (
	MaxDepositCents     = 10_000_000
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// WalletRepository reads ledger history and opens units of work.
type WalletRepository interface {
	TxBeginner
	ListHistory(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
}

// WalletService credits deposits and reports ledger history.
type WalletService struct {
	repo WalletRepository
	log  *zap.Logger
}

// NewWalletService constructs a WalletService.
func NewWalletService(repo WalletRepository, log *zap.Logger) *WalletService {
	return &WalletService{repo: repo, log: log}
}

// Deposit credits amount to the user's balance and returns the new balance.
// A user's first deposit counts them as a trader.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 || amount > MaxDepositCents {
		return 0, models.ErrInvalidAmount
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer repository.SafeRollback(tx, s.log)

	if _, err := tx.GetUserForUpdate(ctx, userID); err != nil {
		return 0, err
	}
	returning, err := tx.HasLedgerKind(ctx, userID, models.LedgerDeposit)
	if err != nil {
		return 0, err
	}
	balance, err := tx.CreditBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	err = tx.AppendLedger(ctx, models.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        models.LedgerDeposit,
		AmountCents: amount,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	if !returning {
		if err := tx.IncrementCounter(ctx, models.CounterTraders, 1); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	metrics.MoneyDeposited.Add(float64(amount))
	return balance, nil
}

// History returns the newest ledger entries of the user. A non-positive
// limit selects the default; larger limits are capped.
func (s *WalletService) History(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.ListHistory(ctx, userID, limit)
}
