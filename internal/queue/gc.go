package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devboard/devboard-api/internal/metrics"
	"go.uber.org/zap"
)

// Defaults for the dead letter sweep. Failed reminder and delivery jobs are
// kept a day so they can be inspected before they go.
const (
	DefaultDLQSweepInterval = time.Hour
	DefaultDLQRetention     = 24 * time.Hour
	dlqSweepTimeout         = 2 * time.Minute
)

// GarbageCollector trims the dead letter queue on a fixed interval.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	purged    atomic.Int64
}

// NewGarbageCollector creates a sweeper. Non-positive durations take the defaults.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultDLQSweepInterval
	}
	if retention <= 0 {
		retention = DefaultDLQRetention
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Purged returns how many jobs this collector has removed
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}

// Start sweeps once immediately, then every interval until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if gc.purger == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	gc.sweepAndLog(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweepAndLog(ctx)
		}
	}
}

func (gc *GarbageCollector) sweepAndLog(ctx context.Context) {
	if err := gc.sweep(ctx); err != nil && ctx.Err() == nil {
		gc.logger.Warn("dlq_sweep_failed", zap.Error(err))
	}
}

// sweep removes dead letters older than the retention. Partial progress
// is counted even when the purge fails midway.
func (gc *GarbageCollector) sweep(ctx context.Context) error {
	if gc.purger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dlqSweepTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if n > 0 {
		gc.purged.Add(int64(n))
		metrics.DLQPurged.Add(float64(n))
		gc.logger.Info("dlq_swept",
			zap.Int("purged", n),
			zap.Duration("retention", gc.retention),
		)
	}
	if err != nil {
		return fmt.Errorf("purge dead letters: %w", err)
	}
	return nil
}
