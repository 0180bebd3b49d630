package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Success(t *testing.T) {
	store := memstore.New()
	u := newUser(t, store, "u1", 10_000)
	svc := newCaseService(t, store)
	ctx := context.Background()

	res, err := svc.Open(ctx, u.ID, "csgo_1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), res.BalanceCents)
	assert.Equal(t, "csgo_1", res.Item.CaseID)
	assert.Equal(t, "CS:GO", res.Item.Game)
	assert.Equal(t, u.ID, res.Item.OwnerID)
	assert.Contains(t, []string{"common", "rare", "epic", "legendary"}, res.Item.Tier)
	assert.Equal(t, models.IsTradableTier(res.Item.Tier), res.Item.Tradable)

	items, err := store.ListInventory(ctx, u.ID, models.FilterAll)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, res.Item.ID, items[0].ID)

	hist, err := store.ListHistory(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.LedgerOpen, hist[0].Kind)
	assert.Equal(t, int64(-5000), hist[0].AmountCents)
	assert.Equal(t, res.Item.ID, hist[0].ItemID)
	assert.Equal(t, res.Item.Tier, hist[0].Tier)

	st, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.CasesOpened)
}

func TestOpen_Errors(t *testing.T) {
	store := memstore.New()
	u := newUser(t, store, "poor", 100)
	svc := newCaseService(t, store)
	ctx := context.Background()

	_, err := svc.Open(ctx, u.ID, "missing")
	assert.ErrorIs(t, err, models.ErrCaseNotFound)

	before := takeSnapshot(t, store, u.ID)
	_, err = svc.Open(ctx, u.ID, "csgo_1")
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, before, takeSnapshot(t, store, u.ID))

	_, err = svc.Open(ctx, "ghost", "csgo_1")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestOpen_AtomicOnAnyFailure(t *testing.T) {
	steps := []string{"BeginTx", "GetUserForUpdate", "DebitBalance", "AddItem", "AppendLedger", "IncrementCounter", "Commit"}

	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			mem := memstore.New()
			u := newUser(t, mem, "u1", 10_000)
			svc := newCaseService(t, &faultyStore{Store: mem, failAt: step})

			before := takeSnapshot(t, mem, u.ID)
			_, err := svc.Open(context.Background(), u.ID, "csgo_1")
			require.ErrorIs(t, err, errInjected)

			after := takeSnapshot(t, mem, u.ID)
			assert.Equal(t, before, after, "no debit without credit and no credit without debit")

			// The store is usable again, so the failed unit of work released it.
			res, err := newCaseService(t, mem).Open(context.Background(), u.ID, "csgo_1")
			require.NoError(t, err)
			assert.Equal(t, int64(5000), res.BalanceCents)
		})
	}
}

func TestOpen_ConcurrentNeverOverdraws(t *testing.T) {
	store := memstore.New()
	const affordable = 10
	u := newUser(t, store, "u1", affordable*3000)
	svc := newCaseService(t, store)

	var ok, broke atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Open(context.Background(), u.ID, "rust_1")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrInsufficientFunds):
				broke.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(affordable), ok.Load())
	assert.Equal(t, int64(40), broke.Load())

	snap := takeSnapshot(t, store, u.ID)
	assert.Equal(t, int64(0), snap.balance)
	assert.Equal(t, affordable, snap.items)
	assert.Equal(t, affordable, snap.ledger)
	assert.Equal(t, int64(affordable), snap.stats.CasesOpened)
}

func TestOpen_LedgerBalancesInventory(t *testing.T) {
	store := memstore.New()
	u := newUser(t, store, "u1", 1_000_000)
	svc := newCaseService(t, store)
	ctx := context.Background()

	var spent int64
	for i := 0; i < 100; i++ {
		res, err := svc.Open(ctx, u.ID, "dota_1")
		require.NoError(t, err)
		spent += 7500
		assert.Equal(t, 1_000_000-spent, res.BalanceCents)
	}

	hist, err := store.ListHistory(ctx, u.ID, 200)
	require.NoError(t, err)
	var ledgerSum int64
	for _, e := range hist {
		ledgerSum += e.AmountCents
	}
	assert.Equal(t, -spent, ledgerSum)

	items, err := store.ListInventory(ctx, u.ID, models.FilterDota2)
	require.NoError(t, err)
	assert.Len(t, items, 100)
}

func TestCaseService_Catalog(t *testing.T) {
	svc := newCaseService(t, memstore.New())

	assert.Len(t, svc.List(""), 3)
	assert.Len(t, svc.List("Rust"), 1)

	cs, err := svc.Get("dota_1")
	require.NoError(t, err)
	assert.Equal(t, int64(7500), cs.Price)
}
