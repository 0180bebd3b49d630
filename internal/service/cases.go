package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/HorosCase/internal/draw"
	"github.com/atinyakov/HorosCase/internal/metrics"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TxBeginner starts units of work over balances and inventory.
type TxBeginner interface {
	BeginTx(ctx context.Context) (repository.Tx, error)
}

// Catalog looks up purchasable cases.
type Catalog interface {
	List(game string) []models.Case
	Get(id string) (models.Case, error)
}

// OpenResult is the outcome of opening a case.
type OpenResult struct {
	Item         models.InventoryItem `json:"item"`
	BalanceCents int64                `json:"balanceCents"`
}

// CaseService serves the catalog and runs the case-opening transaction.
type CaseService struct {
	catalog Catalog
	store   TxBeginner
	src     draw.Source
	log     *zap.Logger
}

// NewCaseService constructs a CaseService. src must be safe for concurrent use.
func NewCaseService(catalog Catalog, store TxBeginner, src draw.Source, log *zap.Logger) *CaseService {
	return &CaseService{catalog: catalog, store: store, src: src, log: log}
}

// List returns the catalog, optionally filtered by game.
func (s *CaseService) List(game string) []models.Case {
	return s.catalog.List(game)
}

// Get returns one case.
func (s *CaseService) Get(id string) (models.Case, error) {
	return s.catalog.Get(id)
}

// Open debits the case price, draws a reward tier and credits the item to
// the user's inventory as one unit of work. On any failure nothing is
// persisted.
func (s *CaseService) Open(ctx context.Context, userID, caseID string) (*OpenResult, error) {
	cs, err := s.catalog.Get(caseID)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer repository.SafeRollback(tx, s.log)

	if _, err := tx.GetUserForUpdate(ctx, userID); err != nil {
		return nil, err
	}
	balance, err := tx.DebitBalance(ctx, userID, cs.Price)
	if err != nil {
		return nil, err
	}

	idx, tier := draw.Draw(cs.RewardTiers, s.src)
	if idx < 0 {
		return nil, fmt.Errorf("case %q has no reward tiers", cs.ID)
	}

	now := time.Now().UTC()
	item := models.InventoryItem{
		ID:         uuid.NewString(),
		OwnerID:    userID,
		CaseID:     cs.ID,
		ItemName:   itemName(cs, tier),
		Tier:       tier.Name,
		Game:       cs.Game,
		ValueCents: tier.Value,
		Tradable:   models.IsTradableTier(tier.Name),
		AcquiredAt: now,
	}
	if err := tx.AddItem(ctx, item); err != nil {
		return nil, err
	}

	err = tx.AppendLedger(ctx, models.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        models.LedgerOpen,
		AmountCents: -cs.Price,
		ItemID:      item.ID,
		ItemName:    item.ItemName,
		CaseID:      cs.ID,
		Tier:        tier.Name,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.IncrementCounter(ctx, models.CounterCasesOpened, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.CasesOpened.WithLabelValues(cs.ID, tier.Name).Inc()
	metrics.MoneySpent.Add(float64(cs.Price))
	s.log.Debug("case opened",
		zap.String("user_id", userID),
		zap.String("case_id", cs.ID),
		zap.String("tier", tier.Name),
		zap.Int64("balance", balance),
	)

	return &OpenResult{Item: item, BalanceCents: balance}, nil
}

func itemName(cs models.Case, tier models.RewardTier) string {
	if tier.Item != "" {
		return tier.Item
	}
	return fmt.Sprintf("%s (%s)", cs.Name, tier.Name)
}
