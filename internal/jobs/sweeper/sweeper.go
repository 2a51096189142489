// Package sweeper fails payments that have been stuck pending longer than a
// configured TTL, so abandoned checkouts do not linger forever.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type staleFailer interface {
	FailStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type livenessPinger interface {
	Ping(ctx context.Context) error
}

type Job struct {
	payments   staleFailer
	store      livenessPinger
	pendingTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func New(payments staleFailer, pendingTTL time.Duration, logger *zap.Logger) *Job {
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		payments:   payments,
		pendingTTL: pendingTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// WithLiveness makes each sweep also ping the store, so a dead connection is
// reported even when there is nothing to fail.
func (j *Job) WithLiveness(store livenessPinger) *Job {
	j.store = store
	return j
}

func (j *Job) Run(ctx context.Context) error {
	if j.store != nil {
		if err := j.store.Ping(ctx); err != nil {
			j.logger.Warn("store liveness check failed", zap.Error(err))
		}
	}
	if j.payments == nil {
		return nil
	}

	cutoff := j.now().Add(-j.pendingTTL)
	failed, err := j.payments.FailStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("fail stale pending payments: %w", err)
	}
	if failed > 0 {
		j.logger.Info("stale pending payments failed", zap.Int64("count", failed))
	}
	return nil
}

// Loop runs the sweep on a ticker until the context is canceled.
func (j *Job) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("payment sweep failed", zap.Error(err))
			}
		}
	}
}
