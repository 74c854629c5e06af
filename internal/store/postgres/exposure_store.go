package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akopyan/signaldesk/internal/domain"
)

// ExposureStore implements domain.ExposureStore using PostgreSQL.
type ExposureStore struct {
	pool *pgxpool.Pool
}

// NewExposureStore creates a new ExposureStore backed by the given connection pool.
func NewExposureStore(pool *pgxpool.Pool) *ExposureStore {
	return &ExposureStore{pool: pool}
}

const exposureSelectCols = `id, position_id, user_id, risk_percent,
	risk_amount, remaining_risk_amount, result, pnl, created_at, closed_at`

func scanExposure(row pgx.Row) (domain.Exposure, error) {
	var e domain.Exposure
	var result string

	err := row.Scan(
		&e.ID, &e.PositionID, &e.UserID, &e.RiskPercent,
		&e.RiskAmount, &e.RemainingRiskAmount, &result, &e.PnL,
		&e.CreatedAt, &e.ClosedAt,
	)
	if err != nil {
		return domain.Exposure{}, err
	}
	e.Result = domain.Result(result)
	return e, nil
}

func scanExposures(rows pgx.Rows) ([]domain.Exposure, error) {
	var exposures []domain.Exposure
	for rows.Next() {
		e, err := scanExposure(rows)
		if err != nil {
			return nil, err
		}
		exposures = append(exposures, e)
	}
	return exposures, rows.Err()
}

// Create inserts a new exposure.
func (s *ExposureStore) Create(ctx context.Context, e domain.Exposure) error {
	const query = `
		INSERT INTO exposures (
			id, position_id, user_id, risk_percent,
			risk_amount, remaining_risk_amount, result, pnl,
			created_at, closed_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.PositionID, e.UserID, e.RiskPercent,
		e.RiskAmount, e.RemainingRiskAmount, string(e.Result), e.PnL,
		e.CreatedAt, e.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create exposure %s: %w", e.ID, err)
	}
	return nil
}

// Settle records the outcome and realized pnl of a pending exposure. The
// result guard keeps settlement idempotent: result is pending iff closed_at
// is null.
func (s *ExposureStore) Settle(ctx context.Context, id string, result domain.Result, pnl float64, closedAt time.Time) error {
	const query = `
		UPDATE exposures SET
			result     = $2,
			pnl        = $3,
			closed_at  = $4,
			updated_at = NOW()
		WHERE id = $1 AND result = 'pending'`

	tag, err := s.pool.Exec(ctx, query, id, string(result), pnl, closedAt)
	if err != nil {
		return fmt.Errorf("postgres: settle exposure %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// GetByID retrieves a single exposure by its ID.
func (s *ExposureStore) GetByID(ctx context.Context, id string) (domain.Exposure, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+exposureSelectCols+` FROM exposures WHERE id = $1`, id)

	e, err := scanExposure(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Exposure{}, domain.ErrNotFound
		}
		return domain.Exposure{}, fmt.Errorf("postgres: get exposure %s: %w", id, err)
	}
	return e, nil
}

// ListByPosition returns all exposures taken against a position.
func (s *ExposureStore) ListByPosition(ctx context.Context, positionID string) ([]domain.Exposure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+exposureSelectCols+` FROM exposures
		 WHERE position_id = $1
		 ORDER BY created_at ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list exposures for position %s: %w", positionID, err)
	}
	defer rows.Close()

	exposures, err := scanExposures(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan exposures for position %s: %w", positionID, err)
	}
	return exposures, nil
}

// ListOpen returns every pending exposure across all users, for the open
// risk projection.
func (s *ExposureStore) ListOpen(ctx context.Context) ([]domain.Exposure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+exposureSelectCols+` FROM exposures
		 WHERE result = 'pending'
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open exposures: %w", err)
	}
	defer rows.Close()

	exposures, err := scanExposures(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open exposures: %w", err)
	}
	return exposures, nil
}

// ListOpenByUser returns a subscriber's pending exposures.
func (s *ExposureStore) ListOpenByUser(ctx context.Context, userID string) ([]domain.Exposure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+exposureSelectCols+` FROM exposures
		 WHERE user_id = $1 AND result = 'pending'
		 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open exposures: %w", err)
	}
	defer rows.Close()

	exposures, err := scanExposures(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open exposures: %w", err)
	}
	return exposures, nil
}

// ListByUser returns a subscriber's exposures with pagination and optional
// time filtering on closed_at (falling back to created_at for records that
// never closed), oldest first for chronological replay.
func (s *ExposureStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Exposure, error) {
	query := `SELECT ` + exposureSelectCols + ` FROM exposures WHERE user_id = $1`
	args := []any{userID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND COALESCE(closed_at, created_at) >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND COALESCE(closed_at, created_at) <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY COALESCE(closed_at, created_at) ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list exposures for user %s: %w", userID, err)
	}
	defer rows.Close()

	exposures, err := scanExposures(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan exposures for user %s: %w", userID, err)
	}
	return exposures, nil
}

// ListSettled returns settled exposures across all users, oldest close
// first, with optional pagination and closed_at filtering.
func (s *ExposureStore) ListSettled(ctx context.Context, opts domain.ListOpts) ([]domain.Exposure, error) {
	query := `SELECT ` + exposureSelectCols + ` FROM exposures WHERE result <> 'pending'`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND closed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND closed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY closed_at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled exposures: %w", err)
	}
	defer rows.Close()

	exposures, err := scanExposures(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan settled exposures: %w", err)
	}
	return exposures, nil
}

// Compile-time interface check.
var _ domain.ExposureStore = (*ExposureStore)(nil)
