package handler

import (
	"log/slog"
	"net/http"

	"github.com/akopyan/signaldesk/internal/domain"
)

// ExposureHandler serves subscriber exposure endpoints.
type ExposureHandler struct {
	exposures domain.ExposureStore
	logger    *slog.Logger
}

// NewExposureHandler creates an ExposureHandler.
func NewExposureHandler(exposures domain.ExposureStore, logger *slog.Logger) *ExposureHandler {
	return &ExposureHandler{
		exposures: exposures,
		logger:    logHandler(logger, "exposures"),
	}
}

// listExposuresResponse wraps the list endpoint output with metadata.
type listExposuresResponse struct {
	Exposures []domain.Exposure `json:"exposures"`
	Count     int               `json:"count"`
}

// ListByUser returns a subscriber's exposures, all of them or just the
// pending ones with ?status=open.
// GET /api/users/{id}/exposures?status=open&limit=50&offset=0
func (h *ExposureHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var (
		exposures []domain.Exposure
		err       error
	)
	switch r.URL.Query().Get("status") {
	case "open":
		exposures, err = h.exposures.ListOpenByUser(r.Context(), userID)
	case "":
		exposures, err = h.exposures.ListByUser(r.Context(), userID, parseListOpts(r))
	default:
		writeError(w, http.StatusBadRequest, "status must be open or omitted")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list exposures failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list exposures")
		return
	}

	if exposures == nil {
		exposures = []domain.Exposure{}
	}
	writeJSON(w, http.StatusOK, listExposuresResponse{
		Exposures: exposures,
		Count:     len(exposures),
	})
}

// ListByPosition returns every exposure taken against a position.
// GET /api/positions/{id}/exposures
func (h *ExposureHandler) ListByPosition(w http.ResponseWriter, r *http.Request) {
	positionID := pathParam(r, "id")
	if positionID == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	exposures, err := h.exposures.ListByPosition(r.Context(), positionID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list exposures failed",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list exposures")
		return
	}

	if exposures == nil {
		exposures = []domain.Exposure{}
	}
	writeJSON(w, http.StatusOK, listExposuresResponse{
		Exposures: exposures,
		Count:     len(exposures),
	})
}
