package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/HorosCase/internal/models"
)

// PostgresLedgerRepository stores balances, inventory, ledger history and
// admin counters in PostgreSQL.
type PostgresLedgerRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresLedgerRepository creates a new PostgresLedgerRepository using the provided *sql.DB.
func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{DB: db}
}

// BeginTx starts a unit of work. Callers must Commit or Rollback it.
func (r *PostgresLedgerRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// Ping checks that the database is reachable.
func (r *PostgresLedgerRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// ListHistory returns the user's ledger entries, newest first.
func (r *PostgresLedgerRepository) ListHistory(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, kind, amount_cents, item_id, item_name, case_id, tier, counterparty, created_at
		  FROM ledger_entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListHistory: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.AmountCents, &e.ItemID, &e.ItemName,
			&e.CaseID, &e.Tier, &e.Counterparty, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListHistory: %w", err)
	}
	return entries, nil
}
