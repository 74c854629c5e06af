// Package monitor watches live quotes for open positions and triggers
// settlement when price crosses a stop or target. It is a supplement to
// manual settlement, not a replacement: both paths converge on the same
// settlement service and its per-position lock.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/akopyan/signaldesk/internal/quotes"
	"github.com/akopyan/signaldesk/internal/service"
)

// defaultInterval is the sweep cadence when none is configured.
const defaultInterval = 15 * time.Second

// Monitor polls quotes for all open positions and settles the ones whose
// stop or effective target has been crossed.
type Monitor struct {
	positions  domain.PositionStore
	updates    domain.TargetUpdateStore
	resolver   *quotes.Resolver
	quotes     *quotes.Service
	settlement *service.SettlementService
	logger     *slog.Logger

	interval time.Duration
}

// New creates a Monitor sweeping at the given interval; a non-positive
// interval selects the default.
func New(
	positions domain.PositionStore,
	updates domain.TargetUpdateStore,
	resolver *quotes.Resolver,
	quoteSvc *quotes.Service,
	settlement *service.SettlementService,
	interval time.Duration,
	logger *slog.Logger,
) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		positions:  positions,
		updates:    updates,
		resolver:   resolver,
		quotes:     quoteSvc,
		settlement: settlement,
		logger:     logger.With(slog.String("component", "monitor")),
		interval:   interval,
	}
}

// Run sweeps until the context is cancelled. Provider or store failures are
// logged and the next tick retries; the loop itself never dies on them.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "exit monitor started",
		slog.Duration("interval", m.interval),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.sweep(ctx); err != nil {
				m.logger.WarnContext(ctx, "sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// sweep batch-fetches quotes for every open position and settles crossings.
func (m *Monitor) sweep(ctx context.Context) error {
	open, err := m.positions.ListOpen(ctx)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	symbolByPos := make(map[string]string, len(open))
	symbols := make([]string, 0, len(open))
	for _, p := range open {
		sym := m.resolver.Resolve(ctx, p)
		if sym == "" {
			continue
		}
		symbolByPos[p.ID] = sym
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return nil
	}

	snaps, err := m.quotes.BatchQuotes(ctx, symbols)
	if err != nil {
		return err
	}

	for _, p := range open {
		snap, ok := snaps[symbolByPos[p.ID]]
		if !ok {
			continue
		}
		m.evaluate(ctx, p, snap.Price)
	}
	return nil
}

// evaluate settles the position when the live price has crossed its stop or
// effective target. A price between the two levels is no-op.
func (m *Monitor) evaluate(ctx context.Context, p domain.Position, price float64) {
	if p.Entry == nil || p.Stop == nil {
		return
	}

	target, hasTarget := m.effectiveTarget(ctx, p)
	stop := p.RRStop()

	var crossed bool
	switch p.Direction {
	case domain.DirectionBuy:
		crossed = price <= stop || (hasTarget && price >= target)
	case domain.DirectionSell:
		crossed = price >= stop || (hasTarget && price <= target)
	}
	if !crossed {
		return
	}

	out, err := m.settlement.Settle(ctx, p.ID, price)
	if err != nil {
		// Lost races with a concurrent settle are expected, not failures.
		if errors.Is(err, domain.ErrAlreadySettled) || errors.Is(err, domain.ErrLockHeld) {
			return
		}
		m.logger.WarnContext(ctx, "auto settle failed",
			slog.String("position_id", p.ID),
			slog.Float64("price", price),
			slog.String("error", err.Error()),
		)
		return
	}

	m.logger.InfoContext(ctx, "auto settled",
		slog.String("position_id", p.ID),
		slog.String("pair", p.Pair),
		slog.String("result", string(out.Result)),
		slog.Float64("price", price),
	)
}

// effectiveTarget returns the level the monitor treats as take-profit: the
// most favorable moved target, falling back to the original. hasTarget is
// false for runner positions with no target at all.
func (m *Monitor) effectiveTarget(ctx context.Context, p domain.Position) (float64, bool) {
	logged, err := m.updates.ListByPosition(ctx, p.ID)
	if err != nil {
		m.logger.WarnContext(ctx, "target update lookup failed",
			slog.String("position_id", p.ID),
			slog.String("error", err.Error()),
		)
		logged = nil
	}

	if p.Target == nil && len(logged) == 0 {
		return 0, false
	}
	return domain.EffectiveTarget(p, logged), true
}
