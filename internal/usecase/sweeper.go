package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
)

const (
	defaultExpirySweepInterval = 30 * time.Minute
	defaultEvictionInterval    = 30 * time.Second
)

// ExpirySweeper periodically removes codes that were never redeemed.
// Expiry itself is enforced at validation time; the sweeper only reclaims storage.
type ExpirySweeper struct {
	codes     port.CodeRepository
	metrics   port.ResetMetrics
	logger    *zap.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewExpirySweeper removes codes issued more than retention ago, every interval.
func NewExpirySweeper(codes port.CodeRepository, retention, interval time.Duration, metrics port.ResetMetrics, log *zap.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultExpirySweepInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpirySweeper{
		codes:     codes,
		metrics:   metrics,
		logger:    log,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the sweeper.
func (s *ExpirySweeper) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SweepOnce deletes every code issued before now minus the retention period.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	removed, err := s.codes.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.CodesSwept(removed)
	}
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled. Failures are logged and retried on the next tick.
func (s *ExpirySweeper) Run(ctx context.Context) {
	runEvery(ctx, s.interval, func() {
		removed, err := s.SweepOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("expired code cleanup failed", zap.Error(err))
			}
			return
		}
		s.logger.Info("expired code cleanup complete", zap.Int64("deleted", removed))
	})
}

// RateLimitEvictor bounds the rate-limit table by dropping idle clients.
type RateLimitEvictor struct {
	store    port.RateLimitStore
	logger   *zap.Logger
	idle     time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewRateLimitEvictor drops entries whose window started more than idle ago, every interval.
func NewRateLimitEvictor(store port.RateLimitStore, idle, interval time.Duration, log *zap.Logger) *RateLimitEvictor {
	if interval <= 0 {
		interval = defaultEvictionInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimitEvictor{
		store:    store,
		logger:   log,
		idle:     idle,
		interval: interval,
		now:      time.Now,
	}
}

// Run evicts every interval until ctx is cancelled.
func (e *RateLimitEvictor) Run(ctx context.Context) {
	runEvery(ctx, e.interval, func() {
		evicted, err := e.store.EvictIdle(ctx, e.now(), e.idle)
		if err != nil {
			if ctx.Err() == nil {
				e.logger.Warn("rate limit eviction failed", zap.Error(err))
			}
			return
		}
		if evicted > 0 {
			e.logger.Debug("rate limit entries evicted", zap.Int("evicted", evicted))
		}
	})
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
