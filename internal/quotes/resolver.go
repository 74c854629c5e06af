// Package quotes maps instruments to provider symbols and serves price
// quotes from a freshness-bounded cache, falling back to the network
// provider only when it has to. It is the single suspension point of the
// analytics pipeline; everything downstream operates on immutable snapshots.
package quotes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/akopyan/signaldesk/internal/domain"
)

// Resolver maps a tradable instrument to a provider symbol. Resolution never
// fails: it always produces some symbol, falling back to the raw pair.
type Resolver struct {
	symbols domain.SymbolMapStore
	logger  *slog.Logger
}

// NewResolver creates a Resolver backed by the authoritative symbol mapping
// store. The store may be nil, in which case only the heuristic applies.
func NewResolver(symbols domain.SymbolMapStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		symbols: symbols,
		logger:  logger.With(slog.String("component", "resolver")),
	}
}

// Resolve returns the provider symbol for a position. Priority: the symbol
// recorded on the position at publish time, then the explicit pair+category
// mapping, then a heuristic derivation from the pair code.
func (r *Resolver) Resolve(ctx context.Context, pos domain.Position) string {
	if pos.QuoteSymbol != "" {
		return pos.QuoteSymbol
	}

	if r.symbols != nil {
		symbol, err := r.symbols.Get(ctx, pos.Pair, pos.Category)
		if err == nil && symbol != "" {
			return symbol
		}
		if err != nil && err != domain.ErrNotFound {
			r.logger.DebugContext(ctx, "symbol mapping lookup failed",
				slog.String("pair", pos.Pair),
				slog.String("error", err.Error()),
			)
		}
	}

	return DeriveSymbol(pos.Pair)
}

// DeriveSymbol normalizes a pair code and inserts a separator after the
// first three characters when the code is six or more characters long
// ("EURUSD" -> "EUR/USD"). Shorter or already-separated codes pass through.
func DeriveSymbol(pair string) string {
	if strings.ContainsAny(pair, "/-") {
		return pair
	}

	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pair), " ", ""))
	if len(normalized) >= 6 {
		return normalized[:3] + "/" + normalized[3:]
	}
	if normalized == "" {
		return pair
	}
	return normalized
}
