package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akopyan/signaldesk/internal/analytics"
	"github.com/akopyan/signaldesk/internal/monitor"
	"github.com/akopyan/signaldesk/internal/server"
	"github.com/akopyan/signaldesk/internal/server/handler"
	"github.com/akopyan/signaldesk/internal/server/ws"
	"github.com/akopyan/signaldesk/internal/service"
)

// ServeMode starts the HTTP API, the websocket hub, and the analytics
// recompute loop. No price sweeps run; settlements happen only via the API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	settlementSvc := a.buildSettlementService(deps)
	analyticsSvc := a.buildAnalyticsService(deps)

	g.Go(func() error {
		return analyticsSvc.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, settlementSvc, analyticsSvc)

	return g.Wait()
}

// MonitorMode runs headless price sweeps over open positions, settling any
// that crossed their stop or target. No HTTP server is started.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	settlementSvc := a.buildSettlementService(deps)
	analyticsSvc := a.buildAnalyticsService(deps)

	g.Go(func() error {
		return analyticsSvc.Run(ctx)
	})

	mon := monitor.New(
		deps.PositionStore,
		deps.TargetUpdateStore,
		deps.QuoteResolver,
		deps.QuoteService,
		settlementSvc,
		a.cfg.Monitor.Interval.Duration,
		a.logger,
	)
	g.Go(func() error {
		return mon.Run(ctx)
	})

	return g.Wait()
}

// ArchiveMode runs the cold-storage export loop on its own: settled ledger
// records older than the retention window are exported to blob storage,
// along with a performance report snapshot.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: archiver not wired (check s3 configuration)")
	}

	g, ctx := errgroup.WithContext(ctx)

	analyticsSvc := a.buildAnalyticsService(deps)
	a.startArchiveLoop(ctx, g, deps, analyticsSvc)

	return g.Wait()
}

// FullMode starts all subsystems: the HTTP API, websocket hub, analytics
// loop, price monitor, and the archive loop when enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	settlementSvc := a.buildSettlementService(deps)
	analyticsSvc := a.buildAnalyticsService(deps)

	g.Go(func() error {
		return analyticsSvc.Run(ctx)
	})

	if a.cfg.Monitor.Enabled {
		mon := monitor.New(
			deps.PositionStore,
			deps.TargetUpdateStore,
			deps.QuoteResolver,
			deps.QuoteService,
			settlementSvc,
			a.cfg.Monitor.Interval.Duration,
			a.logger,
		)
		g.Go(func() error {
			return mon.Run(ctx)
		})
	}

	if a.cfg.Archive.Enabled {
		if deps.Archiver != nil {
			a.startArchiveLoop(ctx, g, deps, analyticsSvc)
		} else {
			a.logger.WarnContext(ctx, "archive.enabled is true but archiver is not wired, skipping")
		}
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, settlementSvc, analyticsSvc)
	}

	return g.Wait()
}

// buildSettlementService assembles the settlement service from wired
// dependencies.
func (a *App) buildSettlementService(deps *Dependencies) *service.SettlementService {
	return service.NewSettlementService(
		deps.PositionStore,
		deps.ExposureStore,
		deps.TargetUpdateStore,
		deps.LockManager,
		deps.SignalBus,
		deps.AuditStore,
		deps.Notifier,
		a.logger,
	)
}

// buildAnalyticsService assembles the analytics service from wired
// dependencies.
func (a *App) buildAnalyticsService(deps *Dependencies) *service.AnalyticsService {
	svc := service.NewAnalyticsService(
		deps.PositionStore,
		deps.ExposureStore,
		deps.TargetUpdateStore,
		deps.QuoteService,
		deps.QuoteResolver,
		deps.SignalBus,
		a.logger,
	)
	svc.SetRefreshInterval(a.cfg.Analytics.RefreshInterval.Duration)
	return svc
}

// startHTTPServer adds the HTTP server and websocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	settlementSvc *service.SettlementService,
	analyticsSvc *service.AnalyticsService,
) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Positions: handler.NewPositionHandler(
			deps.PositionStore,
			deps.TargetUpdateStore,
			settlementSvc,
			a.logger,
		),
		Exposures: handler.NewExposureHandler(deps.ExposureStore, a.logger),
		Analytics: handler.NewAnalyticsHandler(
			analyticsSvc,
			a.cfg.Analytics.StartBalance,
			a.cfg.Analytics.RiskPercent,
			a.logger,
		),
		Quotes: handler.NewQuoteHandler(deps.QuoteService, a.logger),
		Audit:  handler.NewAuditHandler(deps.AuditStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startArchiveLoop adds the periodic cold-storage export goroutine to the
// given errgroup. Each pass exports settled records older than the retention
// window and snapshots an all-time performance report next to them. A failed
// pass is logged and retried on the next tick.
func (a *App) startArchiveLoop(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	analyticsSvc *service.AnalyticsService,
) {
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	interval := a.cfg.Archive.Interval.Duration

	g.Go(func() error {
		a.archivePass(ctx, deps, analyticsSvc, retention)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.archivePass(ctx, deps, analyticsSvc, retention)
			}
		}
	})
}

// archivePass runs one export: settled records beyond retention plus the
// current all-time performance report.
func (a *App) archivePass(
	ctx context.Context,
	deps *Dependencies,
	analyticsSvc *service.AnalyticsService,
	retention time.Duration,
) {
	cutoff := time.Now().UTC().Add(-retention)

	n, err := deps.Archiver.ArchiveSettled(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive pass failed",
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.InfoContext(ctx, "archive pass complete",
		slog.String("cutoff", cutoff.Format(time.RFC3339)),
		slog.Int64("records", n),
	)

	window, err := analytics.ParseWindow(analytics.WindowAllTime, time.Now().UTC())
	if err != nil {
		return
	}
	stats, err := analyticsSvc.Stats(ctx, window, analytics.WindowAllTime)
	if err != nil {
		a.logger.WarnContext(ctx, "report snapshot skipped",
			slog.String("error", err.Error()),
		)
		return
	}
	if err := deps.Archiver.SnapshotReport(ctx, "performance", stats); err != nil {
		a.logger.WarnContext(ctx, "report snapshot failed",
			slog.String("error", err.Error()),
		)
	}
}
