package domain

import (
	"context"
	"time"
)

// QuoteCache provides fast access to recent quote snapshots.
type QuoteCache interface {
	Set(ctx context.Context, snap QuoteSnapshot) error
	// Get returns the cached snapshot regardless of age. It returns
	// ErrNotFound when the symbol has never been cached.
	Get(ctx context.Context, symbol string) (QuoteSnapshot, error)
	// GetMany returns whatever snapshots exist for the given symbols;
	// missing symbols are simply absent from the result map.
	GetMany(ctx context.Context, symbols []string) (map[string]QuoteSnapshot, error)
}

// RateLimiter provides distributed rate limiting for the metered quote
// provider.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking (one settlement per position).
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub for ledger change notifications and durable
// streams for settlement history. Delivery is at-least-once; consumers must
// recompute from a full snapshot rather than apply messages as patches.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
