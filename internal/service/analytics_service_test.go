package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akopyan/signaldesk/internal/analytics"
	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/akopyan/signaldesk/internal/quotes"
)

// nilCache is a domain.QuoteCache that stores nothing, forcing every quote
// request through the provider.
type nilCache struct{}

func (nilCache) Set(context.Context, domain.QuoteSnapshot) error { return nil }
func (nilCache) Get(context.Context, string) (domain.QuoteSnapshot, error) {
	return domain.QuoteSnapshot{}, domain.ErrNotFound
}
func (nilCache) GetMany(context.Context, []string) (map[string]domain.QuoteSnapshot, error) {
	return map[string]domain.QuoteSnapshot{}, nil
}

// stubProvider serves canned prices stamped at request time.
type stubProvider struct {
	prices map[string]float64
}

func (p *stubProvider) Quote(_ context.Context, symbol string) (domain.QuoteSnapshot, error) {
	price, ok := p.prices[symbol]
	if !ok {
		return domain.QuoteSnapshot{}, domain.ErrQuoteUnavailable
	}
	return domain.QuoteSnapshot{Symbol: symbol, Price: price, QuotedAt: time.Now(), Provider: "stub"}, nil
}

func (p *stubProvider) BatchQuotes(_ context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	out := map[string]domain.QuoteSnapshot{}
	for _, sym := range symbols {
		if price, ok := p.prices[sym]; ok {
			out[sym] = domain.QuoteSnapshot{Symbol: sym, Price: price, QuotedAt: time.Now(), Provider: "stub"}
		}
	}
	return out, nil
}

type analyticsFixture struct {
	svc       *AnalyticsService
	positions *memPositionStore
	exposures *memExposureStore
	updates   *memTargetStore
	bus       *memBus
}

func newAnalyticsFixture(t *testing.T, prices map[string]float64) *analyticsFixture {
	t.Helper()
	f := &analyticsFixture{
		positions: newMemPositionStore(),
		exposures: newMemExposureStore(),
		updates:   &memTargetStore{},
		bus:       newMemBus(),
	}

	var quoteSvc *quotes.Service
	if prices != nil {
		quoteSvc = quotes.NewService(&stubProvider{prices: prices}, nilCache{}, discardLogger())
	}
	resolver := quotes.NewResolver(nil, discardLogger())

	f.svc = NewAnalyticsService(
		f.positions, f.exposures, f.updates,
		quoteSvc, resolver, f.bus, discardLogger(),
	)
	return f
}

func closedPosition(id string, dir domain.Direction, entry, stop, target float64, status domain.PositionStatus, closedAt time.Time) domain.Position {
	p := activePosition(id, dir, entry, stop, target)
	p.Status = status
	p.ClosedAt = &closedAt
	p.CreatedAt = closedAt.Add(-24 * time.Hour)
	return p
}

func settledExposure(id, posID string, result domain.Result, riskAmount, pnl float64, closedAt time.Time) domain.Exposure {
	e := pendingExposure(id, posID, "alice", riskAmount, riskAmount)
	e.Result = result
	e.PnL = &pnl
	e.ClosedAt = &closedAt
	e.CreatedAt = closedAt.Add(-24 * time.Hour)
	return e
}

func TestAnalyticsStatsFromSnapshot(t *testing.T) {
	f := newAnalyticsFixture(t, nil)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC)

	require.NoError(t, f.positions.Create(ctx, closedPosition("p1", domain.DirectionBuy, 100, 90, 130, domain.PositionStatusTPHit, day1)))
	require.NoError(t, f.positions.Create(ctx, closedPosition("p2", domain.DirectionBuy, 50, 45, 60, domain.PositionStatusSLHit, day2)))
	require.NoError(t, f.exposures.Create(ctx, settledExposure("e1", "p1", domain.ResultWin, 100, 300, day1)))
	require.NoError(t, f.exposures.Create(ctx, settledExposure("e2", "p2", domain.ResultLoss, 100, -100, day2)))

	stats, err := f.svc.Stats(ctx, analytics.Window{}, analytics.WindowAllTime)
	require.NoError(t, err)

	assert.Equal(t, analytics.WindowAllTime, stats.Window)
	assert.Equal(t, 2, stats.ClosedCount)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 200.0, stats.TotalPnL, 1e-9)
}

func TestAnalyticsEquityCurveHonorsMovedTargets(t *testing.T) {
	f := newAnalyticsFixture(t, nil)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC)

	// Win at the original 3R target, then a loss.
	require.NoError(t, f.positions.Create(ctx, closedPosition("p1", domain.DirectionBuy, 100, 90, 130, domain.PositionStatusTPHit, day1)))
	require.NoError(t, f.positions.Create(ctx, closedPosition("p2", domain.DirectionBuy, 50, 45, 60, domain.PositionStatusSLHit, day2)))

	curve, err := f.svc.EquityCurve(ctx, analytics.Window{}, 10000, 2)
	require.NoError(t, err)
	require.Len(t, curve, 2)

	// 10000 + 200*3 = 10600, then 10600 - 212 = 10388.
	assert.InDelta(t, 10600.00, curve[0].Balance, 1e-9)
	assert.InDelta(t, 10388.00, curve[1].Balance, 1e-9)

	// Moving p1's target to 150 lifts the win to 5R.
	require.NoError(t, f.updates.Log(ctx, domain.TargetUpdate{PositionID: "p1", Price: 150, CreatedAt: day1}))

	curve, err = f.svc.EquityCurve(ctx, analytics.Window{}, 10000, 2)
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.InDelta(t, 11000.00, curve[0].Balance, 1e-9)
}

func TestAnalyticsEquityCurveEmptyLedger(t *testing.T) {
	f := newAnalyticsFixture(t, nil)

	curve, err := f.svc.EquityCurve(context.Background(), analytics.Window{}, 5000, 1)
	require.NoError(t, err)
	require.Len(t, curve, 1)
	assert.Equal(t, "start", curve[0].Label)
	assert.InDelta(t, 5000.00, curve[0].Balance, 1e-9)
}

func TestAnalyticsOpenRiskWithoutLivePrices(t *testing.T) {
	f := newAnalyticsFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.positions.Create(ctx, activePosition("p1", domain.DirectionBuy, 100, 90, 130)))
	require.NoError(t, f.exposures.Create(ctx, pendingExposure("e1", "p1", "alice", 100, 100)))
	require.NoError(t, f.exposures.Create(ctx, pendingExposure("e2", "p1", "bob", 25, 25)))

	summary, err := f.svc.OpenRisk(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.OpenCount)
	assert.InDelta(t, 125.0, summary.TotalRisk, 1e-9)
	assert.Zero(t, summary.UnrealizedPnL)
}

func TestAnalyticsOpenRiskLiveAddsUnrealizedPnL(t *testing.T) {
	f := newAnalyticsFixture(t, map[string]float64{"EUR/USD": 115})
	ctx := context.Background()

	pos := activePosition("p1", domain.DirectionBuy, 100, 90, 130)
	pos.QuoteSymbol = "EUR/USD"
	require.NoError(t, f.positions.Create(ctx, pos))
	require.NoError(t, f.exposures.Create(ctx, pendingExposure("e1", "p1", "alice", 100, 100)))

	summary, err := f.svc.OpenRisk(ctx, true)
	require.NoError(t, err)

	// (115-100)/(100-90) = 1.5R on a 100 stake.
	assert.InDelta(t, 150.0, summary.UnrealizedPnL, 1e-9)
}

func TestAnalyticsPublishStats(t *testing.T) {
	f := newAnalyticsFixture(t, nil)
	ctx := context.Background()

	f.svc.publishStats(ctx)

	assert.Equal(t, 1, f.bus.channelCount("stats"))
}
