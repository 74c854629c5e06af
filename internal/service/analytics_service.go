package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/akopyan/signaldesk/internal/analytics"
	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/akopyan/signaldesk/internal/quotes"
)

// defaultRefreshInterval is the fallback periodic recompute cadence for the
// live stats feed when the ledger is quiet.
const defaultRefreshInterval = 30 * time.Second

// AnalyticsService computes performance rollups, equity curves and open risk
// projections from full ledger snapshots. Every answer is recomputed from
// scratch; bus messages only signal *that* something changed, never what.
type AnalyticsService struct {
	positions domain.PositionStore
	exposures domain.ExposureStore
	updates   domain.TargetUpdateStore
	quotes    *quotes.Service // nil when no live provider is wired
	resolver  *quotes.Resolver
	bus       domain.SignalBus
	logger    *slog.Logger

	refresh time.Duration
	now     func() time.Time
}

// NewAnalyticsService creates an AnalyticsService. The quote service may be
// nil; live price enrichment is then skipped.
func NewAnalyticsService(
	positions domain.PositionStore,
	exposures domain.ExposureStore,
	updates domain.TargetUpdateStore,
	quoteSvc *quotes.Service,
	resolver *quotes.Resolver,
	bus domain.SignalBus,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		positions: positions,
		exposures: exposures,
		updates:   updates,
		quotes:    quoteSvc,
		resolver:  resolver,
		bus:       bus,
		logger:    logger.With(slog.String("component", "analytics_service")),
		refresh:   defaultRefreshInterval,
		now:       time.Now,
	}
}

// SetRefreshInterval overrides the periodic recompute cadence for Run.
func (s *AnalyticsService) SetRefreshInterval(d time.Duration) {
	if d > 0 {
		s.refresh = d
	}
}

// snapshot loads the full ledger state needed by the pure analytics.
func (s *AnalyticsService) snapshot(ctx context.Context) ([]domain.Position, []domain.Exposure, map[string][]domain.TargetUpdate, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("analytics_service: list open positions: %w", err)
	}
	closed, err := s.positions.ListClosed(ctx, domain.ListOpts{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("analytics_service: list closed positions: %w", err)
	}
	positions := append(open, closed...)

	settled, err := s.exposures.ListSettled(ctx, domain.ListOpts{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("analytics_service: list settled exposures: %w", err)
	}

	all, err := s.updates.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("analytics_service: list target updates: %w", err)
	}
	byPosition := make(map[string][]domain.TargetUpdate)
	for _, u := range all {
		byPosition[u.PositionID] = append(byPosition[u.PositionID], u)
	}

	return positions, settled, byPosition, nil
}

// Stats computes the windowed performance rollup. The name tags the output
// for clients; it does not affect the math.
func (s *AnalyticsService) Stats(ctx context.Context, w analytics.Window, name string) (analytics.Stats, error) {
	positions, exposures, updates, err := s.snapshot(ctx)
	if err != nil {
		return analytics.Stats{}, err
	}

	stats := analytics.Aggregate(positions, exposures, updates, w)
	stats.Window = name
	return stats, nil
}

// EquityCurve replays the closed positions inside the window as a compounded
// equity simulation. Wins step by the reward:risk to the position's
// effective target; the moved-target log is honored.
func (s *AnalyticsService) EquityCurve(ctx context.Context, w analytics.Window, startBalance, riskPercent float64) ([]analytics.EquityPoint, error) {
	closed, err := s.positions.ListClosed(ctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("analytics_service: list closed positions: %w", err)
	}
	all, err := s.updates.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics_service: list target updates: %w", err)
	}
	byPosition := make(map[string][]domain.TargetUpdate)
	for _, u := range all {
		byPosition[u.PositionID] = append(byPosition[u.PositionID], u)
	}

	var outcomes []analytics.Outcome
	for _, p := range closed {
		if p.ClosedAt == nil || !w.Contains(*p.ClosedAt) {
			continue
		}
		result := resultForStatus(p.Status)
		if result == domain.ResultPending {
			continue
		}

		var rr float64
		if result == domain.ResultWin && p.Entry != nil {
			target := domain.EffectiveTarget(p, byPosition[p.ID])
			rr = analytics.UnsignedRR(p.Direction, *p.Entry, p.RRStop(), target)
		}

		outcomes = append(outcomes, analytics.Outcome{
			Label:    p.ClosedAt.Format("2006-01-02"),
			Result:   result,
			RR:       rr,
			ClosedAt: *p.ClosedAt,
		})
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].ClosedAt.Before(outcomes[j].ClosedAt)
	})

	return analytics.SimulateEquity(outcomes, startBalance, riskPercent), nil
}

// OpenRisk projects aggregate exposure across all pending stakes. When live
// is set and a quote service is wired, current prices are fetched in one
// batch to add unrealized pnl; quote failures degrade to the price-less
// projection rather than failing the request.
func (s *AnalyticsService) OpenRisk(ctx context.Context, live bool) (analytics.RiskSummary, error) {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return analytics.RiskSummary{}, fmt.Errorf("analytics_service: list open positions: %w", err)
	}
	pending, err := s.exposures.ListOpen(ctx)
	if err != nil {
		return analytics.RiskSummary{}, fmt.Errorf("analytics_service: list open exposures: %w", err)
	}
	all, err := s.updates.ListAll(ctx)
	if err != nil {
		return analytics.RiskSummary{}, fmt.Errorf("analytics_service: list target updates: %w", err)
	}

	byID := make(map[string]domain.Position, len(open))
	for _, p := range open {
		byID[p.ID] = p
	}
	byPosition := make(map[string][]domain.TargetUpdate)
	for _, u := range all {
		byPosition[u.PositionID] = append(byPosition[u.PositionID], u)
	}

	var livePrices map[string]float64
	if live && s.quotes != nil {
		livePrices = s.fetchLivePrices(ctx, open)
	}

	return analytics.ProjectOpenRisk(pending, byID, byPosition, livePrices), nil
}

// fetchLivePrices resolves every open position to a provider symbol and
// batch-fetches quotes, returning prices keyed by position ID.
func (s *AnalyticsService) fetchLivePrices(ctx context.Context, open []domain.Position) map[string]float64 {
	symbolByPos := make(map[string]string, len(open))
	symbols := make([]string, 0, len(open))
	for _, p := range open {
		sym := s.resolver.Resolve(ctx, p)
		if sym == "" {
			continue
		}
		symbolByPos[p.ID] = sym
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return nil
	}

	snaps, err := s.quotes.BatchQuotes(ctx, symbols)
	if err != nil {
		s.logger.WarnContext(ctx, "live price fetch failed, projecting without unrealized pnl",
			slog.String("error", err.Error()),
		)
		return nil
	}

	prices := make(map[string]float64, len(symbolByPos))
	for posID, sym := range symbolByPos {
		if snap, ok := snaps[sym]; ok {
			prices[posID] = snap.Price
		}
	}
	return prices
}

// Run keeps the live stats feed fresh: it recomputes the all-time rollup on
// every ledger change notification (and on a slow timer as a safety net) and
// publishes the result for the websocket hub. It blocks until the context is
// cancelled.
func (s *AnalyticsService) Run(ctx context.Context) error {
	positionEvents, err := s.bus.Subscribe(ctx, "positions")
	if err != nil {
		return fmt.Errorf("analytics_service: subscribe positions: %w", err)
	}
	settlementEvents, err := s.bus.Subscribe(ctx, "settlements")
	if err != nil {
		return fmt.Errorf("analytics_service: subscribe settlements: %w", err)
	}

	s.publishStats(ctx)

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-positionEvents:
			if !ok {
				return ctx.Err()
			}
			s.publishStats(ctx)
		case _, ok := <-settlementEvents:
			if !ok {
				return ctx.Err()
			}
			s.publishStats(ctx)
		case <-ticker.C:
			s.publishStats(ctx)
		}
	}
}

// publishStats recomputes the all-time rollup and pushes it to the bus.
// Failures are logged and swallowed; the next trigger retries.
func (s *AnalyticsService) publishStats(ctx context.Context) {
	stats, err := s.Stats(ctx, analytics.Window{}, analytics.WindowAllTime)
	if err != nil {
		s.logger.WarnContext(ctx, "stats recompute failed",
			slog.String("error", err.Error()),
		)
		return
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		s.logger.WarnContext(ctx, "stats marshal failed",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.bus.Publish(ctx, "stats", payload); err != nil {
		s.logger.WarnContext(ctx, "stats publish failed",
			slog.String("error", err.Error()),
		)
	}
}

// resultForStatus maps a terminal position status back to its outcome. The
// generic closed status (manual close without a decided price) replays as
// breakeven, so curves stay monotone with the figures the ledger shows.
func resultForStatus(status domain.PositionStatus) domain.Result {
	switch status {
	case domain.PositionStatusTPHit:
		return domain.ResultWin
	case domain.PositionStatusSLHit:
		return domain.ResultLoss
	case domain.PositionStatusBreakeven, domain.PositionStatusClosed:
		return domain.ResultBreakeven
	default:
		return domain.ResultPending
	}
}
