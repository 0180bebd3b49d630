//go:build integration

package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/HorosCase/internal/catalog"
	"github.com/atinyakov/HorosCase/internal/db"
	"github.com/atinyakov/HorosCase/internal/draw"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/atinyakov/HorosCase/internal/repository"
	"github.com/atinyakov/HorosCase/internal/service"
	"github.com/atinyakov/HorosCase/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type lastCode struct {
	mu    sync.Mutex
	codes map[string]string
}

func (l *lastCode) SendCode(_ context.Context, email, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.codes[email] = code
	return nil
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	var (
		pgContainer *postgres.PostgresContainer
		err         error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Skipf("Skipping integration test due to panic (likely Docker issue): %v", r)
			}
		}()
		pgContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("horoscase"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
	}()
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	log := zap.NewNop()

	conn, err := db.InitPostgres(ctx, startPostgres(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// InitPostgres leaves the schema at the latest version.
	var users int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users))
	assert.Zero(t, users)
	var latest int64
	require.NoError(t, conn.QueryRowContext(ctx,
		"SELECT MAX(version_id) FROM goose_db_version WHERE is_applied").Scan(&latest))
	assert.Positive(t, latest)
	// Running it again is a no-op.
	require.NoError(t, db.Migrate(ctx, conn, log))
	var after int64
	require.NoError(t, conn.QueryRowContext(ctx,
		"SELECT MAX(version_id) FROM goose_db_version WHERE is_applied").Scan(&after))
	assert.Equal(t, latest, after)

	authRepo := repository.NewPostgresAuthRepository(conn)
	ledger := repository.NewPostgresLedgerRepository(conn)
	cat, err := catalog.Default()
	require.NoError(t, err)

	codes := &lastCode{codes: map[string]string{}}
	sessions := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, authRepo)
	auth := service.NewAuthService(authRepo, sessions, codes, service.AuthOptions{
		InitialBalance: 10_000,
		BcryptCost:     bcrypt.MinCost,
	}, log)
	cases := service.NewCaseService(cat, ledger, draw.NewLockedSource(draw.NewSeededSource(1)), log)
	wallet := service.NewWalletService(ledger, log)
	inventory := service.NewInventoryService(ledger, log)

	signup := func(email, username string) (string, string) {
		require.NoError(t, auth.Register(ctx, email, username, "correct-horse"))
		token, _, err := auth.VerifyCode(ctx, email, codes.codes[email])
		require.NoError(t, err)
		claims, err := auth.VerifyToken(ctx, token)
		require.NoError(t, err)
		return token, claims.UserID()
	}

	_, alice := signup("alice@example.com", "alice")
	bobToken, bob := signup("bob@example.com", "bob")

	t.Run("ConcurrentOpensNeverOverdraw", func(t *testing.T) {
		const attempts = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			won     int
			refused int
		)
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cases.Open(ctx, alice, "rust_1")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, models.ErrInsufficientFunds):
					refused++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, won)
		assert.Equal(t, attempts-3, refused)

		user, err := authRepo.GetUserByID(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000), user.BalanceCents)

		items, err := ledger.ListInventory(ctx, alice, models.FilterAll)
		require.NoError(t, err)
		assert.Len(t, items, 3)

		history, err := wallet.History(ctx, alice, 0)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.Equal(t, models.LedgerSignup, history[3].Kind)

		counts, err := ledger.TierCounts(ctx, "rust_1")
		require.NoError(t, err)
		var total int64
		for _, n := range counts {
			total += n
		}
		assert.Equal(t, int64(3), total)
	})

	t.Run("SellAndStats", func(t *testing.T) {
		items, err := ledger.ListInventory(ctx, alice, models.FilterAll)
		require.NoError(t, err)
		require.NotEmpty(t, items)

		_, err = inventory.Sell(ctx, bob, items[0].ID)
		assert.ErrorIs(t, err, models.ErrNotOwner)

		res, err := inventory.Sell(ctx, alice, items[0].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000)+items[0].ValueCents, res.BalanceCents)

		stats, err := ledger.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.CasesOpened)
		assert.Equal(t, int64(1), stats.ItemsSold)
		assert.Equal(t, int64(2), stats.Users)

		require.NoError(t, ledger.ResetCounter(ctx, models.CounterCasesOpened))
		stats, err = ledger.GetStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.CasesOpened)
	})

	t.Run("RevokedSessionAndPurge", func(t *testing.T) {
		claims, err := auth.VerifyToken(ctx, bobToken)
		require.NoError(t, err)
		require.NoError(t, auth.Logout(ctx, claims))

		_, err = auth.VerifyToken(ctx, bobToken)
		assert.ErrorIs(t, err, models.ErrSessionRevoked)

		removed, err := authRepo.PurgeExpired(ctx, time.Now().Add(2*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))
	})

	require.NoError(t, ledger.Ping(ctx))
}
