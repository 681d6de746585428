package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgettracker/internal/cache"
)

// SessionSweeper removes sessions past their expiry.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// TokenCleaner clears password reset tokens that can no longer be used.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// SweepResult counts what one pass removed.
type SweepResult struct {
	Sessions     int64
	Tokens       int64
	CacheEntries int
}

// Sweeper periodically purges expired sessions, reset tokens and cache
// entries. Expired rows are already rejected on read; sweeping only keeps
// the tables small.
type Sweeper struct {
	sessions SessionSweeper
	tokens   TokenCleaner
	caches   []cache.Cleaner
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(sessions SessionSweeper, tokens TokenCleaner, interval time.Duration, logger *slog.Logger, caches ...cache.Cleaner) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		sessions: sessions,
		tokens:   tokens,
		caches:   caches,
		interval: interval,
		logger:   logger,
	}
}

// SweepOnce runs a single pass. Both steps run even if the first fails.
func (w *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	var errs []error

	n, err := w.sessions.Sweep(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep sessions: %w", err))
	}
	res.Sessions = n

	if w.tokens != nil {
		n, err = w.tokens.CleanupExpiredTokens(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("clear reset tokens: %w", err))
		}
		res.Tokens = n
	}

	for _, c := range w.caches {
		res.CacheEntries += c.CleanExpired()
	}

	return res, errors.Join(errs...)
}

// Run sweeps once at startup and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "Session sweeper started", "interval", w.interval.String())

	w.pass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Session sweeper stopped")
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *Sweeper) pass(ctx context.Context) {
	res, err := w.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "Sweep failed", "error", err)
	}
	if res.Sessions > 0 || res.Tokens > 0 || res.CacheEntries > 0 {
		w.logger.InfoContext(ctx, "Sweep completed",
			"sessions_removed", res.Sessions,
			"tokens_cleared", res.Tokens,
			"cache_entries_evicted", res.CacheEntries)
	}
}
