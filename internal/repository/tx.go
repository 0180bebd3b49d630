// Package repository provides PostgreSQL persistence for users, inventory,
// the balance ledger and admin counters.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tx is a unit of work over balances, inventory and the ledger.
// Every change made through a Tx becomes visible only after Commit.
// Rollback after Commit is a no-op.
type Tx interface {
	// GetUserForUpdate loads the user and locks the row until the Tx ends.
	GetUserForUpdate(ctx context.Context, userID string) (*models.User, error)
	// FindUserByLogin resolves an email or username.
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	// DebitBalance subtracts amount and returns the new balance.
	// It fails with models.ErrInsufficientFunds if the balance would go negative.
	DebitBalance(ctx context.Context, userID string, amount int64) (int64, error)
	// CreditBalance adds amount and returns the new balance.
	CreditBalance(ctx context.Context, userID string, amount int64) (int64, error)
	AddItem(ctx context.Context, item models.InventoryItem) error
	// GetItemForUpdate loads the item and locks the row until the Tx ends.
	GetItemForUpdate(ctx context.Context, itemID string) (*models.InventoryItem, error)
	RemoveItem(ctx context.Context, itemID, ownerID string) error
	TransferItem(ctx context.Context, itemID, fromID, toID string) error
	AppendLedger(ctx context.Context, entry models.LedgerEntry) error
	HasLedgerKind(ctx context.Context, userID string, kind models.LedgerKind) (bool, error)
	IncrementCounter(ctx context.Context, name string, delta int64) error
	Commit() error
	Rollback() error
}

// SafeRollback rolls tx back and logs any failure other than the one
// reported for an already finished transaction.
func SafeRollback(tx Tx, log *zap.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("failed to rollback transaction", zap.Error(err))
	}
}

type pgTx struct {
	tx *sql.Tx
}

const userColumns = `id, email, username, password_hash, balance_cents, role, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var hash string
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &hash, &u.BalanceCents, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.PasswordHash = []byte(hash)
	return &u, nil
}

const itemColumns = `id, owner_id, case_id, item_name, tier, game, value_cents, tradable, acquired_at`

func scanItem(row rowScanner) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := row.Scan(&it.ID, &it.OwnerID, &it.CaseID, &it.ItemName, &it.Tier, &it.Game,
		&it.ValueCents, &it.Tradable, &it.AcquiredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrItemNotFound
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return &it, nil
}

func (t *pgTx) GetUserForUpdate(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
}

func (t *pgTx) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $1`, login))
}

func (t *pgTx) DebitBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE users SET balance_cents = balance_cents - $1
		 WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amount, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}
	return balance, nil
}

func (t *pgTx) CreditBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE users SET balance_cents = balance_cents + $1
		 WHERE id = $2
		RETURNING balance_cents
	`, amount, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}

func (t *pgTx) AddItem(ctx context.Context, item models.InventoryItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.OwnerID, item.CaseID, item.ItemName, item.Tier, item.Game,
		item.ValueCents, item.Tradable, item.AcquiredAt)
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

// itemIDValid reports whether itemID can name a row; inventory ids are UUIDs
// and Postgres rejects anything else with a syntax error.
func itemIDValid(itemID string) bool {
	_, err := uuid.Parse(itemID)
	return err == nil
}

func (t *pgTx) GetItemForUpdate(ctx context.Context, itemID string) (*models.InventoryItem, error) {
	if !itemIDValid(itemID) {
		return nil, models.ErrItemNotFound
	}
	return scanItem(t.tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, itemID))
}

func (t *pgTx) RemoveItem(ctx context.Context, itemID, ownerID string) error {
	if !itemIDValid(itemID) {
		return models.ErrItemNotFound
	}
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM inventory_items WHERE id = $1 AND owner_id = $2`, itemID, ownerID)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return expectOneRow(res, models.ErrItemNotFound)
}

func (t *pgTx) TransferItem(ctx context.Context, itemID, fromID, toID string) error {
	if !itemIDValid(itemID) {
		return models.ErrItemNotFound
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE inventory_items SET owner_id = $1 WHERE id = $2 AND owner_id = $3`, toID, itemID, fromID)
	if err != nil {
		return fmt.Errorf("transfer item: %w", err)
	}
	return expectOneRow(res, models.ErrItemNotFound)
}

func (t *pgTx) AppendLedger(ctx context.Context, e models.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount_cents, item_id, item_name, case_id, tier, counterparty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.UserID, string(e.Kind), e.AmountCents, e.ItemID, e.ItemName, e.CaseID, e.Tier, e.Counterparty, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

func (t *pgTx) HasLedgerKind(ctx context.Context, userID string, kind models.LedgerKind) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE user_id = $1 AND kind = $2)`,
		userID, string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	return exists, nil
}

func (t *pgTx) IncrementCounter(ctx context.Context, name string, delta int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO counters (name, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET value = counters.value + EXCLUDED.value, updated_at = now()
	`, name, delta)
	if err != nil {
		return fmt.Errorf("increment counter %s: %w", name, err)
	}
	return nil
}

func (t *pgTx) Commit() error {
	return t.tx.Commit()
}

func (t *pgTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
