package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/akopyan/signaldesk/internal/service"
)

// Settler defines what the position handler needs from the settlement
// service. Declared locally so the handler package does not depend on the
// concrete implementation in tests.
type Settler interface {
	Settle(ctx context.Context, positionID string, price float64) (service.SettlementOutcome, error)
	MoveTarget(ctx context.Context, positionID string, price float64) (domain.TargetUpdate, error)
}

// PositionHandler serves position endpoints: listing, lookup, manual
// settlement and target moves.
type PositionHandler struct {
	positions  domain.PositionStore
	updates    domain.TargetUpdateStore
	settlement Settler
	logger     *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions domain.PositionStore, updates domain.TargetUpdateStore, settlement Settler, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions:  positions,
		updates:    updates,
		settlement: settlement,
		logger:     logHandler(logger, "positions"),
	}
}

// listPositionsResponse wraps the list endpoint output with metadata.
type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
	Count     int               `json:"count"`
}

// ListPositions returns open positions by default, or the settled history
// with ?status=closed.
// GET /api/positions?status=open|closed&limit=50&offset=0
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	var (
		positions []domain.Position
		err       error
	)

	switch r.URL.Query().Get("status") {
	case "", "open":
		positions, err = h.positions.ListOpen(r.Context())
	case "closed":
		positions, err = h.positions.ListClosed(r.Context(), parseListOpts(r))
	default:
		writeError(w, http.StatusBadRequest, "status must be open or closed")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list positions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{
		Positions: positions,
		Count:     len(positions),
	})
}

// positionResponse is a position plus its moved-target log.
type positionResponse struct {
	Position      domain.Position       `json:"position"`
	TargetUpdates []domain.TargetUpdate `json:"target_updates"`
}

// GetPosition returns a single position with its target update history.
// GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	pos, err := h.positions.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updates, err := h.updates.ListByPosition(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "target update lookup failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
	}
	if updates == nil {
		updates = []domain.TargetUpdate{}
	}

	writeJSON(w, http.StatusOK, positionResponse{
		Position:      pos,
		TargetUpdates: updates,
	})
}

// priceRequest is the body for settle and target endpoints.
type priceRequest struct {
	Price float64 `json:"price"`
}

// SettlePosition decides and persists the position's outcome at the given
// reference price.
// POST /api/positions/{id}/settle {"price": 1.2345}
func (h *PositionHandler) SettlePosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		writeError(w, http.StatusBadRequest, "price is not a finite number")
		return
	}

	outcome, err := h.settlement.Settle(r.Context(), id, req.Price)
	if err != nil {
		h.logger.WarnContext(r.Context(), "settle failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// MoveTarget appends a moved target for the position.
// POST /api/positions/{id}/target {"price": 1.5}
func (h *PositionHandler) MoveTarget(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if math.IsNaN(req.Price) || math.IsInf(req.Price, 0) || req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be a positive finite number")
		return
	}

	update, err := h.settlement.MoveTarget(r.Context(), id, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, update)
}
