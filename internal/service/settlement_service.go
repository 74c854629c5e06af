package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/akopyan/signaldesk/internal/analytics"
	"github.com/akopyan/signaldesk/internal/domain"
)

// settleLockTTL bounds how long a settlement lock can be held if the process
// dies mid-settlement.
const settleLockTTL = 30 * time.Second

// Notifier broadcasts settlement outcomes to operators. Satisfied by
// *notify.Notifier; nil-able via the noop implementation in wire-up.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SettlementService decides and persists the terminal outcome of a position.
// Settlement is guarded by a distributed per-position lock so concurrent
// triggers (admin endpoint, live monitor) cannot double-settle.
type SettlementService struct {
	positions domain.PositionStore
	exposures domain.ExposureStore
	updates   domain.TargetUpdateStore
	locks     domain.LockManager
	bus       domain.SignalBus
	audit     domain.AuditStore
	notifier  Notifier
	logger    *slog.Logger

	now func() time.Time
}

// NewSettlementService creates a SettlementService with all required
// dependencies. The notifier may be nil when no senders are configured.
func NewSettlementService(
	positions domain.PositionStore,
	exposures domain.ExposureStore,
	updates domain.TargetUpdateStore,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		positions: positions,
		exposures: exposures,
		updates:   updates,
		locks:     locks,
		bus:       bus,
		audit:     audit,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "settlement_service")),
		now:       time.Now,
	}
}

// SettlementOutcome reports what a settlement did.
type SettlementOutcome struct {
	Position        domain.Position `json:"position"`
	Result          domain.Result   `json:"result"`
	SignedRR        float64         `json:"signed_rr"`
	SettlementPrice float64         `json:"settlement_price"`
	ExposuresClosed int             `json:"exposures_closed"`
}

// Settle classifies an active position against the reference price and
// persists the outcome across the ledger: terminal position status, per
// exposure result and realized pnl, an audit entry, bus events and an
// operator broadcast. A non-finite price fails before anything is written.
func (s *SettlementService) Settle(ctx context.Context, positionID string, price float64) (SettlementOutcome, error) {
	unlock, err := s.locks.Acquire(ctx, "settle:"+positionID, settleLockTTL)
	if err != nil {
		return SettlementOutcome{}, fmt.Errorf("settlement_service: lock position %q: %w", positionID, err)
	}
	defer unlock()

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return SettlementOutcome{}, fmt.Errorf("settlement_service: get position %q: %w", positionID, err)
	}
	if pos.Status.Terminal() {
		return SettlementOutcome{}, domain.ErrAlreadySettled
	}
	if pos.Entry == nil || pos.Stop == nil {
		return SettlementOutcome{}, fmt.Errorf("settlement_service: position %q has no entry/stop", positionID)
	}

	entry := *pos.Entry
	stop := pos.RRStop()

	// Classification happens before any write so a bad price aborts cleanly.
	result, err := analytics.Classify(pos.Direction, entry, stop, price)
	if err != nil {
		return SettlementOutcome{}, fmt.Errorf("settlement_service: classify position %q: %w", positionID, err)
	}
	signedRR := analytics.SignedRR(pos.Direction, entry, stop, price)

	closedAt := s.now().UTC()
	status := analytics.StatusForResult(result)

	if err := s.positions.Settle(ctx, positionID, status, closedAt); err != nil {
		return SettlementOutcome{}, fmt.Errorf("settlement_service: settle position %q: %w", positionID, err)
	}
	pos.Status = status
	pos.ClosedAt = &closedAt

	closed, err := s.settleExposures(ctx, positionID, result, signedRR, closedAt)
	if err != nil {
		// The position is already terminal; exposures that failed stay
		// pending and the next settlement attempt returns ErrAlreadySettled,
		// so surface loudly for the operator.
		s.logger.ErrorContext(ctx, "exposure settlement incomplete",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()),
		)
	}

	s.recordSettlement(ctx, pos, result, signedRR, price, closed)

	s.logger.InfoContext(ctx, "position settled",
		slog.String("position_id", positionID),
		slog.String("result", string(result)),
		slog.Float64("signed_rr", signedRR),
		slog.Float64("price", price),
		slog.Int("exposures_closed", closed),
	)

	return SettlementOutcome{
		Position:        pos,
		Result:          result,
		SignedRR:        signedRR,
		SettlementPrice: price,
		ExposuresClosed: closed,
	}, nil
}

// settleExposures closes every pending exposure on the position. Realized
// pnl: wins pay the full staked risk amount times the signed RR, losses cost
// whatever risk remained after partials, breakeven pays nothing.
func (s *SettlementService) settleExposures(ctx context.Context, positionID string, result domain.Result, signedRR float64, closedAt time.Time) (int, error) {
	exposures, err := s.exposures.ListByPosition(ctx, positionID)
	if err != nil {
		return 0, fmt.Errorf("list exposures: %w", err)
	}

	var closed, failed int
	for _, exp := range exposures {
		if !exp.Open() {
			continue
		}

		var pnl float64
		switch result {
		case domain.ResultWin:
			pnl = exp.RiskAmount * signedRR
		case domain.ResultLoss:
			pnl = -exp.RemainingRiskAmount
		case domain.ResultBreakeven:
			pnl = 0
		}

		if err := s.exposures.Settle(ctx, exp.ID, result, pnl, closedAt); err != nil {
			failed++
			s.logger.WarnContext(ctx, "exposure settle failed",
				slog.String("exposure_id", exp.ID),
				slog.String("position_id", positionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		closed++
	}

	if failed > 0 {
		return closed, fmt.Errorf("%d of %d exposures failed to settle", failed, closed+failed)
	}
	return closed, nil
}

// recordSettlement emits the audit entry, the bus events and the operator
// broadcast. None of these can fail the settlement itself.
func (s *SettlementService) recordSettlement(ctx context.Context, pos domain.Position, result domain.Result, signedRR, price float64, closed int) {
	detail := map[string]any{
		"position_id":      pos.ID,
		"pair":             pos.Pair,
		"direction":        string(pos.Direction),
		"result":           string(result),
		"signed_rr":        signedRR,
		"price":            price,
		"exposures_closed": closed,
	}

	if err := s.audit.Log(ctx, "position_settled", detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(detail)
	if err := s.bus.Publish(ctx, "settlements", evt); err != nil {
		s.logger.WarnContext(ctx, "publish settlement failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, "stream:settlements", evt); err != nil {
		s.logger.WarnContext(ctx, "append settlement stream failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.notifier != nil {
		title := settlementTitle(result)
		msg := fmt.Sprintf("%s %s settled %s at %.5f (%.2fR)",
			pos.Pair, pos.Direction, result, price, signedRR)
		if err := s.notifier.Notify(ctx, "settlement", title, msg); err != nil {
			s.logger.WarnContext(ctx, "settlement broadcast failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func settlementTitle(result domain.Result) string {
	switch result {
	case domain.ResultWin:
		return "Target hit"
	case domain.ResultLoss:
		return "Stop hit"
	default:
		return "Breakeven close"
	}
}

// MoveTarget appends a new target to the position's moved-target log. The
// most favorable logged target wins during reward:risk aggregation; the
// original target on the position row is never rewritten.
func (s *SettlementService) MoveTarget(ctx context.Context, positionID string, price float64) (domain.TargetUpdate, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return domain.TargetUpdate{}, fmt.Errorf("settlement_service: get position %q: %w", positionID, err)
	}
	if pos.Status.Terminal() {
		return domain.TargetUpdate{}, domain.ErrAlreadySettled
	}

	update := domain.TargetUpdate{
		PositionID: positionID,
		Price:      price,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.updates.Log(ctx, update); err != nil {
		return domain.TargetUpdate{}, fmt.Errorf("settlement_service: log target update for %q: %w", positionID, err)
	}

	if err := s.audit.Log(ctx, "target_moved", map[string]any{
		"position_id": positionID,
		"price":       price,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":       "target_moved",
		"position_id": positionID,
		"price":       price,
	})
	if err := s.bus.Publish(ctx, "positions", evt); err != nil {
		s.logger.WarnContext(ctx, "publish target update failed",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "target moved",
		slog.String("position_id", positionID),
		slog.Float64("price", price),
	)

	return update, nil
}
