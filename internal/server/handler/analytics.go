package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/akopyan/signaldesk/internal/analytics"
	"github.com/akopyan/signaldesk/internal/service"
)

// Equity endpoint defaults when the caller leaves parameters out.
const (
	defaultStartBalance = 10000
	defaultRiskPercent  = 1
)

// AnalyticsHandler serves performance rollups, equity curves and the open
// risk projection.
type AnalyticsHandler struct {
	analytics    *service.AnalyticsService
	startBalance float64
	riskPercent  float64
	logger       *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler. startBalance and
// riskPercent seed the equity simulation when the caller omits them;
// non-positive values fall back to the built-in defaults.
func NewAnalyticsHandler(svc *service.AnalyticsService, startBalance, riskPercent float64, logger *slog.Logger) *AnalyticsHandler {
	if startBalance <= 0 {
		startBalance = defaultStartBalance
	}
	if riskPercent <= 0 || riskPercent > 100 {
		riskPercent = defaultRiskPercent
	}
	return &AnalyticsHandler{
		analytics:    svc,
		startBalance: startBalance,
		riskPercent:  riskPercent,
		logger:       logHandler(logger, "analytics"),
	}
}

// parseWindow resolves the window query parameter, either a named preset or
// a from/to RFC 3339 pair. Empty means all time.
func parseWindow(r *http.Request) (analytics.Window, string, error) {
	q := r.URL.Query()

	if from, to := q.Get("from"), q.Get("to"); from != "" && to != "" {
		fromT, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return analytics.Window{}, "", err
		}
		toT, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return analytics.Window{}, "", err
		}
		return analytics.WindowRange(fromT, toT), "custom", nil
	}

	name := q.Get("window")
	if name == "" {
		name = analytics.WindowAllTime
	}
	w, err := analytics.ParseWindow(name, time.Now().UTC())
	if err != nil {
		return analytics.Window{}, "", err
	}
	return w, name, nil
}

// Stats returns the windowed performance rollup.
// GET /api/stats?window=this_month  or  ?from=...&to=... (RFC 3339)
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	window, name, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	stats, err := h.analytics.Stats(r.Context(), window, name)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// equityResponse carries the simulated curve plus the inputs it was built
// from, so clients can label it.
type equityResponse struct {
	StartBalance float64                 `json:"start_balance"`
	RiskPercent  float64                 `json:"risk_percent"`
	Window       string                  `json:"window"`
	Points       []analytics.EquityPoint `json:"points"`
}

// Equity returns the compounded equity simulation over the window.
// GET /api/equity?balance=10000&risk=2&window=all_time
func (h *AnalyticsHandler) Equity(w http.ResponseWriter, r *http.Request) {
	window, name, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid window")
		return
	}

	balance := h.startBalance
	if v := r.URL.Query().Get("balance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "balance must be a positive number")
			return
		}
		balance = f
	}

	risk := h.riskPercent
	if v := r.URL.Query().Get("risk"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 100 {
			writeError(w, http.StatusBadRequest, "risk must be a percent in (0, 100]")
			return
		}
		risk = f
	}

	points, err := h.analytics.EquityCurve(r.Context(), window, balance, risk)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "equity curve failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to simulate equity")
		return
	}

	writeJSON(w, http.StatusOK, equityResponse{
		StartBalance: balance,
		RiskPercent:  risk,
		Window:       name,
		Points:       points,
	})
}

// Risk returns the open risk projection. ?live=true enriches it with
// unrealized pnl from current quotes.
// GET /api/risk?live=true
func (h *AnalyticsHandler) Risk(w http.ResponseWriter, r *http.Request) {
	live := r.URL.Query().Get("live") == "true"

	summary, err := h.analytics.OpenRisk(r.Context(), live)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "risk projection failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to project open risk")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
