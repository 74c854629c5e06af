package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akopyan/signaldesk/internal/domain"
)

// SymbolMapStore implements domain.SymbolMapStore using PostgreSQL.
type SymbolMapStore struct {
	pool *pgxpool.Pool
}

// NewSymbolMapStore creates a new SymbolMapStore backed by the given pool.
func NewSymbolMapStore(pool *pgxpool.Pool) *SymbolMapStore {
	return &SymbolMapStore{pool: pool}
}

// Upsert records the provider symbol for an instrument within a category,
// replacing any previous mapping.
func (s *SymbolMapStore) Upsert(ctx context.Context, pair, category, symbol string) error {
	const query = `
		INSERT INTO symbol_map (pair, category, symbol, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (pair, category) DO UPDATE SET
			symbol     = EXCLUDED.symbol,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, pair, category, symbol)
	if err != nil {
		return fmt.Errorf("postgres: upsert symbol for %s/%s: %w", pair, category, err)
	}
	return nil
}

// Get returns the provider symbol for an instrument, or domain.ErrNotFound
// when no explicit mapping exists.
func (s *SymbolMapStore) Get(ctx context.Context, pair, category string) (string, error) {
	var symbol string
	err := s.pool.QueryRow(ctx,
		`SELECT symbol FROM symbol_map WHERE pair = $1 AND category = $2`,
		pair, category,
	).Scan(&symbol)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("postgres: get symbol for %s/%s: %w", pair, category, err)
	}
	return symbol, nil
}

// Compile-time interface check.
var _ domain.SymbolMapStore = (*SymbolMapStore)(nil)
