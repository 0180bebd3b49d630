package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/HorosCase/internal/models"
)

// GetStats returns the admin counters and the number of registered users.
func (r *PostgresLedgerRepository) GetStats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	rows, err := r.DB.QueryContext(ctx, `SELECT name, value, updated_at FROM counters`)
	if err != nil {
		return st, fmt.Errorf("GetStats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			value   int64
			updated time.Time
		)
		if err := rows.Scan(&name, &value, &updated); err != nil {
			return st, fmt.Errorf("scan: %w", err)
		}
		switch name {
		case models.CounterCasesOpened:
			st.CasesOpened = value
		case models.CounterTraders:
			st.Traders = value
		case models.CounterItemsSold:
			st.ItemsSold = value
		}
		if updated.After(st.UpdatedAt) {
			st.UpdatedAt = updated
		}
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("GetStats: %w", err)
	}

	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&st.Users); err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	return st, nil
}

// ResetCounter sets a named counter back to zero.
func (r *PostgresLedgerRepository) ResetCounter(ctx context.Context, name string) error {
	if !models.IsCounter(name) {
		return models.ErrUnknownCounter
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO counters (name, value, updated_at) VALUES ($1, 0, now())
		ON CONFLICT (name) DO UPDATE SET value = 0, updated_at = now()
	`, name)
	if err != nil {
		return fmt.Errorf("reset counter %s: %w", name, err)
	}
	return nil
}

// TierCounts returns how many times each tier has been drawn for caseID,
// taken from the open entries of the ledger.
func (r *PostgresLedgerRepository) TierCounts(ctx context.Context, caseID string) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT tier, COUNT(*) FROM ledger_entries
		 WHERE kind = 'open' AND case_id = $1
		 GROUP BY tier
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("TierCounts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			tier string
			n    int64
		)
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		counts[tier] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("TierCounts: %w", err)
	}
	return counts, nil
}
