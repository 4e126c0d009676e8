// Package portfolio supplies the current holdings consumed by the
// rebalancing analyzer.
package portfolio

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/domain"
)

const holdingsSchema = `
CREATE TABLE IF NOT EXISTS holdings (
	symbol        TEXT PRIMARY KEY,
	shares        REAL NOT NULL,
	average_cost  REAL NOT NULL DEFAULT 0,
	current_price REAL NOT NULL DEFAULT 0
);
`

// Repository reads and writes holdings in sqlite
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates the repository and ensures its schema exists
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	if _, err := db.Exec(holdingsSchema); err != nil {
		return nil, fmt.Errorf("failed to create holdings schema: %w", err)
	}
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "holdings").Logger(),
	}, nil
}

// GetHoldings returns all holdings ordered by symbol
func (r *Repository) GetHoldings(ctx context.Context) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, shares, average_cost, current_price
		FROM holdings ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Shares, &h.AverageCost, &h.CurrentPrice); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Upsert inserts or replaces one holding by symbol
func (r *Repository) Upsert(ctx context.Context, h domain.Holding) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO holdings (symbol, shares, average_cost, current_price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			shares = excluded.shares,
			average_cost = excluded.average_cost,
			current_price = excluded.current_price
	`, h.Symbol, h.Shares, h.AverageCost, h.CurrentPrice)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// UpdatePrice stores a refreshed market price for a symbol
func (r *Repository) UpdatePrice(ctx context.Context, symbol string, price float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE holdings SET current_price = ? WHERE symbol = ?
	`, price, symbol)
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}
	return nil
}

// Remove deletes a holding by symbol
func (r *Repository) Remove(ctx context.Context, symbol string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM holdings WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove holding %s: %w", symbol, err)
	}
	return nil
}
