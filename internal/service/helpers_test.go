package service

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/HorosCase/internal/catalog"
	"github.com/atinyakov/HorosCase/internal/draw"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository"
	"github.com/atinyakov/HorosCase/internal/repository/memstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

func newUser(t *testing.T, s *memstore.Store, id string, balance int64) models.User {
	t.Helper()
	ctx := context.Background()
	u := models.User{ID: id, Email: id + "@example.com", Username: id, BalanceCents: balance, Role: models.RolePlayer}
	require.NoError(t, s.SavePendingRegistration(ctx, models.PendingRegistration{Email: u.Email, Username: u.Username}))
	require.NoError(t, s.CompleteRegistration(ctx, u, nil))
	return u
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

func newCaseService(t *testing.T, store TxBeginner) *CaseService {
	return NewCaseService(defaultCatalog(t), store, draw.NewLockedSource(draw.NewSeededSource(1)), zap.NewNop())
}

// faultyStore wraps memstore so that the named Tx step fails.
type faultyStore struct {
	*memstore.Store
	failAt string
}

func (f *faultyStore) BeginTx(ctx context.Context) (repository.Tx, error) {
	if f.failAt == "BeginTx" {
		return nil, errInjected
	}
	tx, err := f.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{Tx: tx, failAt: f.failAt}, nil
}

type faultyTx struct {
	repository.Tx
	failAt string
}

func (t *faultyTx) GetUserForUpdate(ctx context.Context, userID string) (*models.User, error) {
	if t.failAt == "GetUserForUpdate" {
		return nil, errInjected
	}
	return t.Tx.GetUserForUpdate(ctx, userID)
}

func (t *faultyTx) DebitBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	if t.failAt == "DebitBalance" {
		return 0, errInjected
	}
	return t.Tx.DebitBalance(ctx, userID, amount)
}

func (t *faultyTx) CreditBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	if t.failAt == "CreditBalance" {
		return 0, errInjected
	}
	return t.Tx.CreditBalance(ctx, userID, amount)
}

func (t *faultyTx) AddItem(ctx context.Context, item models.InventoryItem) error {
	if t.failAt == "AddItem" {
		return errInjected
	}
	return t.Tx.AddItem(ctx, item)
}

func (t *faultyTx) RemoveItem(ctx context.Context, itemID, ownerID string) error {
	if t.failAt == "RemoveItem" {
		return errInjected
	}
	return t.Tx.RemoveItem(ctx, itemID, ownerID)
}

func (t *faultyTx) TransferItem(ctx context.Context, itemID, fromID, toID string) error {
	if t.failAt == "TransferItem" {
		return errInjected
	}
	return t.Tx.TransferItem(ctx, itemID, fromID, toID)
}

func (t *faultyTx) AppendLedger(ctx context.Context, e models.LedgerEntry) error {
	if t.failAt == "AppendLedger" {
		return errInjected
	}
	return t.Tx.AppendLedger(ctx, e)
}

func (t *faultyTx) IncrementCounter(ctx context.Context, name string, delta int64) error {
	if t.failAt == "IncrementCounter" {
		return errInjected
	}
	return t.Tx.IncrementCounter(ctx, name, delta)
}

func (t *faultyTx) Commit() error {
	if t.failAt == "Commit" {
		return errInjected
	}
	return t.Tx.Commit()
}

// snapshot captures everything a unit of work can change for one user.
type snapshot struct {
	balance int64
	items   int
	ledger  int
	stats   models.Stats
}

func takeSnapshot(t *testing.T, s *memstore.Store, userID string) snapshot {
	t.Helper()
	ctx := context.Background()
	u, err := s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	items, err := s.ListInventory(ctx, userID, models.FilterAll)
	require.NoError(t, err)
	hist, err := s.ListHistory(ctx, userID, 1000)
	require.NoError(t, err)
	st, err := s.GetStats(ctx)
	require.NoError(t, err)
	st.UpdatedAt = st.UpdatedAt.Truncate(0)
	return snapshot{balance: u.BalanceCents, items: len(items), ledger: len(hist), stats: st}
}
