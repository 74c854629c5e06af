// Package server exposes the settlement ledger and analytics over HTTP and
// websocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
	"github.com/akopyan/signaldesk/internal/server/handler"
	"github.com/akopyan/signaldesk/internal/server/middleware"
	"github.com/akopyan/signaldesk/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Per-client API rate limiting, enforced only when a limiter is wired.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Positions *handler.PositionHandler
	Exposures *handler.ExposureHandler
	Analytics *handler.AnalyticsHandler
	Quotes    *handler.QuoteHandler
	Audit     *handler.AuditHandler
}

// Server is the HTTP + websocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limit, logging, CORS, auth) applied. limiter
// may be nil, which disables API rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Position endpoints.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/positions/{id}", handlers.Positions.GetPosition)
	mux.HandleFunc("POST /api/positions/{id}/settle", handlers.Positions.SettlePosition)
	mux.HandleFunc("POST /api/positions/{id}/target", handlers.Positions.MoveTarget)
	mux.HandleFunc("GET /api/positions/{id}/exposures", handlers.Exposures.ListByPosition)

	// Subscriber exposure endpoints.
	mux.HandleFunc("GET /api/users/{id}/exposures", handlers.Exposures.ListByUser)

	// Analytics endpoints.
	mux.HandleFunc("GET /api/stats", handlers.Analytics.Stats)
	mux.HandleFunc("GET /api/equity", handlers.Analytics.Equity)
	mux.HandleFunc("GET /api/risk", handlers.Analytics.Risk)

	// Quote endpoints.
	mux.HandleFunc("GET /api/quotes/{symbol}", handlers.Quotes.GetQuote)
	mux.HandleFunc("POST /api/quotes/batch", handlers.Quotes.BatchQuotes)

	// Audit trail.
	mux.HandleFunc("GET /api/audit", handlers.Audit.List)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
