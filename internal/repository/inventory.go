package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/lib/pq"
)

// ListInventory returns the items owned by userID that pass filter,
// most recently acquired first.
func (r *PostgresLedgerRepository) ListInventory(ctx context.Context, userID string, filter models.InventoryFilter) ([]models.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE owner_id = $1`
	args := []any{userID}

	switch {
	case filter.Game() != "":
		query += ` AND game = $2`
		args = append(args, filter.Game())
	case filter == models.FilterRare:
		query += ` AND tier = ANY($2)`
		args = append(args, pq.Array(models.RareTiers))
	case filter == models.FilterTradable:
		query += ` AND tradable`
	}
	query += ` ORDER BY acquired_at DESC, id`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListInventory: %w", err)
	}
	defer rows.Close()

	items := make([]models.InventoryItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInventory: %w", err)
	}
	return items, nil
}
