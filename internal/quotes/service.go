package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

// Provider is the remote quote endpoint. Single-symbol and batch fetches are
// separate calls because their failure semantics differ: a single fetch
// propagates errors, a batch degrades to cache.
type Provider interface {
	Quote(ctx context.Context, symbol string) (domain.QuoteSnapshot, error)
	BatchQuotes(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error)
}

// providerBudgetKey is the rate-limiter key shared by all provider calls;
// the quote provider is metered per account, not per symbol.
const providerBudgetKey = "pricefeed"

// Service serves quotes cache-first. The cache is session-scoped and
// explicit, never an ambient singleton; construct one Service per client
// session and discard it at session end.
type Service struct {
	provider Provider
	cache    domain.QuoteCache
	limiter  domain.RateLimiter // optional
	logger   *slog.Logger

	// Provider budget, applied when limiter is set.
	budgetLimit  int
	budgetWindow time.Duration

	now func() time.Time

	// Refresh sequencing: a response belonging to a superseded request is
	// discarded, never merged. Last accepted by sequence, not last arrived.
	mu       sync.Mutex
	seq      uint64
	accepted uint64
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithRateLimiter meters provider calls with the given limiter and budget.
func WithRateLimiter(rl domain.RateLimiter, limit int, window time.Duration) ServiceOption {
	return func(s *Service) {
		s.limiter = rl
		s.budgetLimit = limit
		s.budgetWindow = window
	}
}

// WithClock overrides the freshness clock. Tests use this.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a quote Service over the given provider and cache.
func NewService(provider Provider, cache domain.QuoteCache, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		provider:     provider,
		cache:        cache,
		logger:       logger.With(slog.String("component", "quotes")),
		budgetLimit:  60,
		budgetWindow: time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote returns a price snapshot for one symbol: the cached snapshot when it
// is within the freshness window, otherwise a provider fetch. Unlike the
// batch path there is no degrade to stale data here; transport and auth
// failures propagate so the caller can surface a retry.
func (s *Service) Quote(ctx context.Context, symbol string) (domain.QuoteSnapshot, error) {
	now := s.now()

	if snap, err := s.cache.Get(ctx, symbol); err == nil && snap.Valid() && snap.Fresh(now) {
		return snap, nil
	}

	if err := s.allowProviderCall(ctx); err != nil {
		return domain.QuoteSnapshot{}, err
	}

	seq := s.nextSeq()
	snap, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("quotes: fetch %s: %w", symbol, err)
	}
	if !snap.Valid() || snap.Price == 0 {
		return domain.QuoteSnapshot{}, fmt.Errorf("quotes: fetch %s: %w", symbol, domain.ErrQuoteUnavailable)
	}

	if s.acceptSeq(seq) {
		if cacheErr := s.cache.Set(ctx, snap); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache write failed",
				slog.String("symbol", symbol),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return snap, nil
}

// BatchQuotes returns snapshots for the deduplicated symbol set. When every
// requested symbol is cache-fresh the network call is skipped entirely; the
// provider is metered and an avoidable batch costs real money. Otherwise one
// batched call covers the full set, network results are merged over cache,
// and stale cache fills any gaps in the response. On network failure the
// batch degrades to whatever cache exists rather than failing outright.
func (s *Service) BatchQuotes(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	symbols = dedupe(symbols)
	if len(symbols) == 0 {
		return map[string]domain.QuoteSnapshot{}, nil
	}

	now := s.now()

	cached, err := s.cache.GetMany(ctx, symbols)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
		cached = map[string]domain.QuoteSnapshot{}
	}

	allFresh := true
	for _, sym := range symbols {
		snap, ok := cached[sym]
		if !ok || !snap.Valid() || !snap.Fresh(now) {
			allFresh = false
			break
		}
	}
	if allFresh {
		return cached, nil
	}

	if err := s.allowProviderCall(ctx); err != nil {
		return s.degrade(ctx, symbols, cached, err)
	}

	seq := s.nextSeq()
	fetched, err := s.provider.BatchQuotes(ctx, symbols)
	if err != nil {
		return s.degrade(ctx, symbols, cached, fmt.Errorf("quotes: batch fetch: %w", err))
	}

	result := make(map[string]domain.QuoteSnapshot, len(symbols))
	if s.acceptSeq(seq) {
		for sym, snap := range fetched {
			if !snap.Valid() {
				continue
			}
			result[sym] = snap
			if cacheErr := s.cache.Set(ctx, snap); cacheErr != nil {
				s.logger.WarnContext(ctx, "cache write failed",
					slog.String("symbol", sym),
					slog.String("error", cacheErr.Error()),
				)
			}
		}
	} else {
		s.logger.DebugContext(ctx, "discarding superseded batch response",
			slog.Uint64("seq", seq),
		)
	}

	// Stale cache fills any symbol the accepted response did not cover.
	for _, sym := range symbols {
		if _, ok := result[sym]; ok {
			continue
		}
		if snap, ok := cached[sym]; ok && snap.Valid() {
			result[sym] = snap
		}
	}

	return result, nil
}

// degrade returns whatever valid cache exists for the symbols, or the
// original error when the cache has nothing at all.
func (s *Service) degrade(ctx context.Context, symbols []string, cached map[string]domain.QuoteSnapshot, cause error) (map[string]domain.QuoteSnapshot, error) {
	result := make(map[string]domain.QuoteSnapshot, len(cached))
	for _, sym := range symbols {
		if snap, ok := cached[sym]; ok && snap.Valid() {
			result[sym] = snap
		}
	}
	if len(result) == 0 {
		return nil, cause
	}

	s.logger.WarnContext(ctx, "batch fetch degraded to cache",
		slog.Int("requested", len(symbols)),
		slog.Int("served", len(result)),
		slog.String("error", cause.Error()),
	)
	return result, nil
}

func (s *Service) allowProviderCall(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, providerBudgetKey, s.budgetLimit, s.budgetWindow)
	if err != nil {
		// A broken limiter must not take quotes down with it.
		s.logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
		return nil
	}
	if !allowed {
		return fmt.Errorf("quotes: provider budget exhausted: %w", domain.ErrRateLimited)
	}
	return nil
}

func (s *Service) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// acceptSeq records seq as the latest accepted refresh. It reports false
// when a later request has already been accepted, in which case the caller
// must discard its response.
func (s *Service) acceptSeq(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.accepted {
		return false
	}
	s.accepted = seq
	return true
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := symbols[:0:0]
	for _, sym := range symbols {
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
