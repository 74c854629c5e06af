package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries. Time
// bounds apply to closed_at for settled records and created_at otherwise.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists published trade ideas.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	Update(ctx context.Context, pos Position) error
	// Settle transitions an active position to the given terminal status,
	// stamping closed_at. It returns ErrAlreadySettled when the position
	// is no longer active.
	Settle(ctx context.Context, id string, status PositionStatus, closedAt time.Time) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListOpen(ctx context.Context) ([]Position, error)
	ListClosed(ctx context.Context, opts ListOpts) ([]Position, error)
}

// ExposureStore persists subscriber stakes in positions.
type ExposureStore interface {
	Create(ctx context.Context, exp Exposure) error
	// Settle records the outcome and realized pnl of a pending exposure.
	Settle(ctx context.Context, id string, result Result, pnl float64, closedAt time.Time) error
	GetByID(ctx context.Context, id string) (Exposure, error)
	ListByPosition(ctx context.Context, positionID string) ([]Exposure, error)
	ListOpen(ctx context.Context) ([]Exposure, error)
	ListOpenByUser(ctx context.Context, userID string) ([]Exposure, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Exposure, error)
	// ListSettled returns settled exposures across all users, for the
	// full-snapshot aggregation recompute.
	ListSettled(ctx context.Context, opts ListOpts) ([]Exposure, error)
}

// TargetUpdateStore persists the append-only moved-target log.
type TargetUpdateStore interface {
	Log(ctx context.Context, u TargetUpdate) error
	ListByPosition(ctx context.Context, positionID string) ([]TargetUpdate, error)
	// ListAll returns the entire log in insertion order, for snapshot loads.
	ListAll(ctx context.Context) ([]TargetUpdate, error)
}

// SymbolMapStore is the authoritative instrument -> provider-symbol mapping.
type SymbolMapStore interface {
	Upsert(ctx context.Context, pair, category, symbol string) error
	// Get returns ErrNotFound when no explicit mapping exists.
	Get(ctx context.Context, pair, category string) (string, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log of settlement activity.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
