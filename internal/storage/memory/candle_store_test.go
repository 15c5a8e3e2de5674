package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

func TestCandleStoreApplyTradeInvalid(t *testing.T) {
	s := NewCandleStore()
	ctx := context.Background()
	open := time.Now().UTC()

	_, err := s.ApplyTrade(ctx, "", model.Timeframe1m, open, "1", "1", "1")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = s.ApplyTrade(ctx, poolA, model.Timeframe("7m"), open, "1", "1", "1")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCandleStoreConcurrentTradesSameBucket(t *testing.T) {
	s := NewCandleStore()
	ctx := context.Background()
	open := model.Timeframe1m.BucketStart(time.Now())

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			price := fmt.Sprintf("%d.000000000000000000", i+1)
			_, err := s.ApplyTrade(ctx, poolA, model.Timeframe1m, open, price, "1", "2")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	candles, err := s.GetRange(ctx, poolA, model.Timeframe1m, open, open)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, workers, c.TradeCount)
	assert.Equal(t, fmt.Sprintf("%d", workers), c.Volume0)
	assert.Equal(t, fmt.Sprintf("%d", workers*2), c.Volume1)
	assert.Equal(t, fmt.Sprintf("%d.000000000000000000", workers), c.High)
	assert.Equal(t, "1.000000000000000000", c.Low)
}

func TestCandleStoreGetRangeBounds(t *testing.T) {
	s := NewCandleStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		open := base.Add(time.Duration(i) * time.Minute)
		_, err := s.ApplyTrade(ctx, poolA, model.Timeframe1m, open, "1.000000000000000000", "1", "1")
		require.NoError(t, err)
	}

	// Bounds are inclusive.
	candles, err := s.GetRange(ctx, poolA, model.Timeframe1m, base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.True(t, candles[0].OpenTime.Before(candles[1].OpenTime))

	candles, err = s.GetRange(ctx, poolA, model.Timeframe5m, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, candles)
}
