package handler

import (
	"log/slog"
	"net/http"

	"github.com/akopyan/signaldesk/internal/domain"
)

// AuditHandler serves the settlement audit trail.
type AuditHandler struct {
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logHandler(logger, "audit"),
	}
}

// listAuditResponse wraps the list endpoint output with metadata.
type listAuditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
	Count   int                 `json:"count"`
}

// List returns audit entries, newest first.
// GET /api/audit?limit=50&offset=0&since=...&until=...
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, listAuditResponse{
		Entries: entries,
		Count:   len(entries),
	})
}
