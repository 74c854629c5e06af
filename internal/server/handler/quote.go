package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/akopyan/signaldesk/internal/quotes"
)

// maxBatchSymbols bounds a single batch request.
const maxBatchSymbols = 100

// QuoteHandler serves quote lookups through the cache-fronted quote service.
type QuoteHandler struct {
	quotes *quotes.Service
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(svc *quotes.Service, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: svc,
		logger: logHandler(logger, "quotes"),
	}
}

// GetQuote returns one price snapshot.
// GET /api/quotes/{symbol}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := pathParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	snap, err := h.quotes.Quote(r.Context(), symbol)
	if err != nil {
		h.logger.WarnContext(r.Context(), "quote failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// batchQuoteRequest is the body for the batch endpoint.
type batchQuoteRequest struct {
	Symbols []string `json:"symbols"`
}

// batchQuoteResponse maps each resolved symbol to its snapshot. Symbols the
// provider and cache both miss are absent.
type batchQuoteResponse struct {
	Quotes map[string]domain.QuoteSnapshot `json:"quotes"`
}

// BatchQuotes returns snapshots for a set of symbols in one call.
// POST /api/quotes/batch {"symbols":["EUR/USD","XAU/USD"]}
func (h *QuoteHandler) BatchQuotes(w http.ResponseWriter, r *http.Request) {
	var req batchQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols must not be empty")
		return
	}
	if len(req.Symbols) > maxBatchSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols")
		return
	}

	snaps, err := h.quotes.BatchQuotes(r.Context(), req.Symbols)
	if err != nil {
		h.logger.WarnContext(r.Context(), "batch quotes failed",
			slog.Int("symbols", len(req.Symbols)),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchQuoteResponse{Quotes: snaps})
}
