// Package candle folds individual trades into OHLCV candles for every
// supported timeframe.
package candle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dexstream/internal/model"
	"dexstream/internal/pricing"
	"dexstream/internal/storage"
)

// Publisher receives the updated candle for each timeframe after a
// trade is applied.
type Publisher interface {
	Publish(channel string, data any)
}

// Aggregator applies trades to the candle store across all timeframes.
type Aggregator struct {
	candles storage.CandleStore
	pub     Publisher
	logger  *zap.Logger
}

func NewAggregator(candles storage.CandleStore, pub Publisher, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{candles: candles, pub: pub, logger: logger}
}

// Channel returns the broadcast channel name for a pool's candles in a
// timeframe.
func Channel(poolID string, tf model.Timeframe) string {
	return fmt.Sprintf("pool:%s:candle:%s", poolID, tf)
}

// RecordTrade updates the candle of every timeframe containing ts.
// Volumes are taken as absolute values so the direction of the swap
// does not affect them.
func (a *Aggregator) RecordTrade(ctx context.Context, poolID string, ts time.Time, price, amount0, amount1 string) error {
	volume0 := pricing.AbsString(amount0)
	volume1 := pricing.AbsString(amount1)

	for _, tf := range model.Timeframes {
		openTime := tf.BucketStart(ts)
		updated, err := a.candles.ApplyTrade(ctx, poolID, tf, openTime, price, volume0, volume1)
		if err != nil {
			return fmt.Errorf("apply trade to %s candle: %w", tf, err)
		}
		if a.pub != nil {
			a.pub.Publish(Channel(poolID, tf), updated)
		}
	}
	return nil
}

// History returns candles for a pool and timeframe ordered by open
// time ascending.
func (a *Aggregator) History(ctx context.Context, poolID string, tf model.Timeframe, from, to time.Time) ([]*model.Candle, error) {
	candles, err := a.candles.GetRange(ctx, poolID, tf, from, to)
	if err != nil {
		return nil, fmt.Errorf("load candle history: %w", err)
	}
	return candles, nil
}
