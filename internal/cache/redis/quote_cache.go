package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

// quoteKeyTTL keeps dead symbols from accumulating. It is deliberately much
// longer than the freshness window: a stale snapshot is still the degrade
// target when the provider is down.
const quoteKeyTTL = 24 * time.Hour

// QuoteCache implements domain.QuoteCache using Redis hashes. Each symbol's
// snapshot is stored at key "quote:{symbol}" with fields "price", "ts"
// (unix nanoseconds) and "provider".
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// Set stores a quote snapshot for its symbol.
func (qc *QuoteCache) Set(ctx context.Context, snap domain.QuoteSnapshot) error {
	key := quoteKey(snap.Symbol)
	fields := map[string]interface{}{
		"price":    strconv.FormatFloat(snap.Price, 'f', -1, 64),
		"ts":       strconv.FormatInt(snap.QuotedAt.UnixNano(), 10),
		"provider": snap.Provider,
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", snap.Symbol, err)
	}
	return nil
}

// Get retrieves the cached snapshot for a symbol regardless of age. It
// returns domain.ErrNotFound when the symbol has never been cached.
func (qc *QuoteCache) Get(ctx context.Context, symbol string) (domain.QuoteSnapshot, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	snap, err := snapshotFromHash(symbol, vals)
	if err != nil {
		return domain.QuoteSnapshot{}, err
	}
	return snap, nil
}

// GetMany retrieves whatever snapshots exist for the given symbols in one
// pipelined round trip. Missing symbols are simply absent from the result.
func (qc *QuoteCache) GetMany(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return map[string]domain.QuoteSnapshot{}, nil
	}

	pipe := qc.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(symbols))
	for i, sym := range symbols {
		cmds[i] = pipe.HGetAll(ctx, quoteKey(sym))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: get quotes: %w", err)
	}

	out := make(map[string]domain.QuoteSnapshot, len(symbols))
	for i, sym := range symbols {
		vals, err := cmds[i].Result()
		if err != nil {
			continue
		}
		snap, err := snapshotFromHash(sym, vals)
		if err != nil {
			continue
		}
		out[sym] = snap
	}
	return out, nil
}

// snapshotFromHash rebuilds a domain snapshot from hash fields.
func snapshotFromHash(symbol string, vals map[string]string) (domain.QuoteSnapshot, error) {
	if len(vals) == 0 {
		return domain.QuoteSnapshot{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return domain.QuoteSnapshot{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("redis: parse quote price %s: %w", symbol, err)
	}

	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("redis: parse quote ts %s: %w", symbol, err)
	}

	return domain.QuoteSnapshot{
		Symbol:   symbol,
		Price:    price,
		QuotedAt: time.Unix(0, tsNano).UTC(),
		Provider: vals["provider"],
	}, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
