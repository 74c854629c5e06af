package quotes

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akopyan/signaldesk/internal/domain"
)

type fakeSymbolMap struct {
	entries map[string]string // pair|category -> symbol
}

func (f *fakeSymbolMap) Upsert(_ context.Context, pair, category, symbol string) error {
	if f.entries == nil {
		f.entries = map[string]string{}
	}
	f.entries[pair+"|"+category] = symbol
	return nil
}

func (f *fakeSymbolMap) Get(_ context.Context, pair, category string) (string, error) {
	if s, ok := f.entries[pair+"|"+category]; ok {
		return s, nil
	}
	return "", domain.ErrNotFound
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolvePriorityChain(t *testing.T) {
	ctx := context.Background()
	store := &fakeSymbolMap{}
	_ = store.Upsert(ctx, "XAUUSD", "commodities", "XAU/USD:OANDA")
	r := NewResolver(store, discardLogger())

	// Recorded quote symbol wins over everything.
	pos := domain.Position{Pair: "XAUUSD", Category: "commodities", QuoteSymbol: "GOLD-SPOT"}
	assert.Equal(t, "GOLD-SPOT", r.Resolve(ctx, pos))

	// Explicit mapping beats the heuristic.
	pos.QuoteSymbol = ""
	assert.Equal(t, "XAU/USD:OANDA", r.Resolve(ctx, pos))

	// No mapping: heuristic derivation.
	pos.Pair, pos.Category = "EURUSD", "forex"
	assert.Equal(t, "EUR/USD", r.Resolve(ctx, pos))
}

func TestResolveNeverFails(t *testing.T) {
	r := NewResolver(nil, discardLogger())
	ctx := context.Background()

	assert.Equal(t, "EUR/USD", r.Resolve(ctx, domain.Position{Pair: "eurusd"}))
	assert.Equal(t, "US30", r.Resolve(ctx, domain.Position{Pair: "us30"}))
	assert.Equal(t, "BTC/USD", r.Resolve(ctx, domain.Position{Pair: "BTC/USD"}))
	assert.Equal(t, "", r.Resolve(ctx, domain.Position{}))
}

func TestDeriveSymbol(t *testing.T) {
	tests := []struct {
		pair string
		want string
	}{
		{"EURUSD", "EUR/USD"},
		{"gbpjpy", "GBP/JPY"},
		{" XAUUSD ", "XAU/USD"},
		{"BTCUSDT", "BTC/USDT"},
		{"EUR/USD", "EUR/USD"}, // already separated
		{"XAU-USD", "XAU-USD"},
		{"GOLD", "GOLD"}, // under six characters: passthrough
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveSymbol(tt.pair), "pair %q", tt.pair)
	}
}
