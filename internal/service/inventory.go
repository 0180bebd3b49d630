package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/HorosCase/internal/metrics"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryRepository lists a user's items.
type InventoryRepository interface {
	TxBeginner
	ListInventory(ctx context.Context, userID string, filter models.InventoryFilter) ([]models.InventoryItem, error)
}

// SellResult is the outcome of selling an item.
type SellResult struct {
	ItemID       string `json:"itemId"`
	CreditCents  int64  `json:"creditCents"`
	BalanceCents int64  `json:"balanceCents"`
}

// InventoryService lists, sells and gifts inventory items.
type InventoryService struct {
	repo InventoryRepository
	log  *zap.Logger
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(repo InventoryRepository, log *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, log: log}
}

// List returns the user's items passing filter.
func (s *InventoryService) List(ctx context.Context, userID string, filter models.InventoryFilter) ([]models.InventoryItem, error) {
	return s.repo.ListInventory(ctx, userID, filter)
}

// lockOwnedItem loads the item inside tx and checks that userID owns it.
func lockOwnedItem(ctx context.Context, tx repository.Tx, userID, itemID string) (*models.InventoryItem, error) {
	item, err := tx.GetItemForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		return nil, models.ErrNotOwner
	}
	return item, nil
}

// Sell removes an owned item and credits its recorded value.
func (s *InventoryService) Sell(ctx context.Context, userID, itemID string) (*SellResult, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer repository.SafeRollback(tx, s.log)

	if _, err := tx.GetUserForUpdate(ctx, userID); err != nil {
		return nil, err
	}
	item, err := lockOwnedItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := tx.RemoveItem(ctx, item.ID, userID); err != nil {
		return nil, err
	}
	balance, err := tx.CreditBalance(ctx, userID, item.ValueCents)
	if err != nil {
		return nil, err
	}
	err = tx.AppendLedger(ctx, models.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        models.LedgerSell,
		AmountCents: item.ValueCents,
		ItemID:      item.ID,
		ItemName:    item.ItemName,
		CaseID:      item.CaseID,
		Tier:        item.Tier,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := tx.IncrementCounter(ctx, models.CounterItemsSold, 1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.ItemsSold.WithLabelValues(item.Tier).Inc()
	return &SellResult{ItemID: item.ID, CreditCents: item.ValueCents, BalanceCents: balance}, nil
}

// Gift moves a tradable item to the user identified by recipient, which may
// be an e-mail address or a username.
func (s *InventoryService) Gift(ctx context.Context, userID, itemID, recipient string) (*models.InventoryItem, error) {
	recipient = strings.TrimSpace(recipient)
	if strings.Contains(recipient, "@") {
		recipient = normalizeEmail(recipient)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer repository.SafeRollback(tx, s.log)

	sender, err := tx.GetUserForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	to, err := tx.FindUserByLogin(ctx, recipient)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("recipient %q: %w", recipient, err)
	}
	if err != nil {
		return nil, err
	}
	if to.ID == userID {
		return nil, models.ErrSelfGift
	}

	item, err := lockOwnedItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Tradable {
		return nil, models.ErrNotTradable
	}
	if err := tx.TransferItem(ctx, item.ID, userID, to.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, e := range []models.LedgerEntry{
		{UserID: userID, Kind: models.LedgerGiftOut, Counterparty: to.Username},
		{UserID: to.ID, Kind: models.LedgerGiftIn, Counterparty: sender.Username},
	} {
		e.ID = uuid.NewString()
		e.ItemID = item.ID
		e.ItemName = item.ItemName
		e.Tier = item.Tier
		e.CreatedAt = now
		if err := tx.AppendLedger(ctx, e); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.ItemsGifted.Inc()
	item.OwnerID = to.ID
	return item, nil
}
