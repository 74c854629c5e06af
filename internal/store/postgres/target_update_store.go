package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akopyan/signaldesk/internal/domain"
)

// TargetUpdateStore implements domain.TargetUpdateStore using PostgreSQL.
// The log is append-only; rows are never updated or deleted.
type TargetUpdateStore struct {
	pool *pgxpool.Pool
}

// NewTargetUpdateStore creates a new TargetUpdateStore backed by the given pool.
func NewTargetUpdateStore(pool *pgxpool.Pool) *TargetUpdateStore {
	return &TargetUpdateStore{pool: pool}
}

// Log appends a moved-target entry for a position.
func (s *TargetUpdateStore) Log(ctx context.Context, u domain.TargetUpdate) error {
	const query = `
		INSERT INTO target_updates (position_id, price, created_at)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, query, u.PositionID, u.Price, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: log target update for %s: %w", u.PositionID, err)
	}
	return nil
}

// ListByPosition returns a position's target updates in insertion order.
func (s *TargetUpdateStore) ListByPosition(ctx context.Context, positionID string) ([]domain.TargetUpdate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, position_id, price, created_at FROM target_updates
		 WHERE position_id = $1
		 ORDER BY id ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list target updates for %s: %w", positionID, err)
	}
	defer rows.Close()

	var updates []domain.TargetUpdate
	for rows.Next() {
		var u domain.TargetUpdate
		if err := rows.Scan(&u.ID, &u.PositionID, &u.Price, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan target update: %w", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate target updates: %w", err)
	}
	return updates, nil
}

// ListAll returns the entire moved-target log in insertion order.
func (s *TargetUpdateStore) ListAll(ctx context.Context) ([]domain.TargetUpdate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, position_id, price, created_at FROM target_updates ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list target updates: %w", err)
	}
	defer rows.Close()

	var updates []domain.TargetUpdate
	for rows.Next() {
		var u domain.TargetUpdate
		if err := rows.Scan(&u.ID, &u.PositionID, &u.Price, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan target update: %w", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate target updates: %w", err)
	}
	return updates, nil
}

// Compile-time interface check.
var _ domain.TargetUpdateStore = (*TargetUpdateStore)(nil)
