// Package stats maintains the rolling 24 hour rollup per pool.
package stats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dexstream/internal/model"
	"dexstream/internal/observability"
	"dexstream/internal/pricing"
	"dexstream/internal/storage"
)

const window = 24 * time.Hour

// Aggregator recomputes pool stats from stored swaps and replaces the
// cached row wholesale.
type Aggregator struct {
	swaps   storage.SwapStore
	pools   storage.PoolStore
	stats   storage.StatsStore
	metrics *observability.Metrics
	logger  *zap.Logger

	// now is replaceable in tests.
	now func() time.Time
}

func NewAggregator(swaps storage.SwapStore, pools storage.PoolStore, stats storage.StatsStore, metrics *observability.Metrics, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		swaps:   swaps,
		pools:   pools,
		stats:   stats,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Refresh recomputes one pool's 24h stats. A pool with no trades in
// the window gets zero volumes and nil price fields.
func (a *Aggregator) Refresh(ctx context.Context, poolID string) (*model.PoolStats, error) {
	since := a.now().Add(-window)

	count, volume0, volume1, err := a.swaps.WindowTotals(ctx, poolID, since)
	if err != nil {
		return nil, fmt.Errorf("window totals: %w", err)
	}

	stats := &model.PoolStats{
		PoolID:          poolID,
		Volume24hToken0: volume0,
		Volume24hToken1: volume1,
		TradeCount24h:   count,
	}

	oldest, haveOldest, err := a.swaps.OldestPriceSince(ctx, poolID, since)
	if err != nil {
		return nil, fmt.Errorf("oldest price: %w", err)
	}
	latest, haveLatest, err := a.swaps.LatestPrice(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("latest price: %w", err)
	}

	if haveOldest && haveLatest {
		stats.Price24hAgo = &oldest
		change, err := pricing.PercentChange(oldest, latest)
		if err == nil {
			stats.PriceChange24h = &change
		} else {
			a.logger.Warn("percent change failed",
				zap.String("pool", poolID), zap.Error(err))
		}
	}

	if err := a.stats.Replace(ctx, stats); err != nil {
		return nil, fmt.Errorf("replace stats: %w", err)
	}
	return stats, nil
}

// RefreshAll recomputes stats for every active pool. Per-pool failures
// are logged and do not stop the sweep.
func (a *Aggregator) RefreshAll(ctx context.Context) error {
	pools, err := a.pools.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active pools: %w", err)
	}

	for _, pool := range pools {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := a.Refresh(ctx, pool.PoolID); err != nil {
			if a.metrics != nil {
				a.metrics.StatsRefreshes.WithLabelValues("error").Inc()
			}
			a.logger.Warn("stats refresh failed", zap.String("pool", pool.PoolID), zap.Error(err))
			continue
		}
		if a.metrics != nil {
			a.metrics.StatsRefreshes.WithLabelValues("ok").Inc()
		}
	}
	return nil
}

// Run refreshes all pools on a fixed interval until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.RefreshAll(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn("stats sweep failed", zap.Error(err))
			}
		}
	}
}
