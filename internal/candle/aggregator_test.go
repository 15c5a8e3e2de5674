package candle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexstream/internal/model"
	"dexstream/internal/storage/memory"
)

const testPool = "0x6c9d034b2f5b6d8e9ab7f1c2d3e4f5061728394a5b6c7d8e9f001122334455aa"

type capturingPublisher struct {
	messages map[string][]any
}

func (p *capturingPublisher) Publish(channel string, data any) {
	if p.messages == nil {
		p.messages = make(map[string][]any)
	}
	p.messages[channel] = append(p.messages[channel], data)
}

func TestRecordTradeUpdatesEveryTimeframe(t *testing.T) {
	store := memory.NewCandleStore()
	pub := &capturingPublisher{}
	agg := NewAggregator(store, pub, nil)

	ts := time.Date(2026, 3, 1, 13, 37, 42, 0, time.UTC)
	err := agg.RecordTrade(context.Background(), testPool, ts, "2.000000000000000000", "-1000", "2000")
	require.NoError(t, err)

	for _, tf := range model.Timeframes {
		candles, err := store.GetRange(context.Background(), testPool, tf, ts.Add(-48*time.Hour), ts)
		require.NoError(t, err)
		require.Len(t, candles, 1, "timeframe %s", tf)

		c := candles[0]
		assert.Equal(t, tf.BucketStart(ts), c.OpenTime)
		assert.Equal(t, "2.000000000000000000", c.Open)
		assert.Equal(t, "1000", c.Volume0)
		assert.Equal(t, "2000", c.Volume1)
		assert.Equal(t, 1, c.TradeCount)

		published := pub.messages[Channel(testPool, tf)]
		require.Len(t, published, 1)
	}
}

func TestRecordTradeAccumulatesWithinBucket(t *testing.T) {
	store := memory.NewCandleStore()
	agg := NewAggregator(store, nil, nil)

	base := time.Date(2026, 3, 1, 13, 0, 5, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, agg.RecordTrade(ctx, testPool, base, "2.000000000000000000", "100", "-200"))
	require.NoError(t, agg.RecordTrade(ctx, testPool, base.Add(10*time.Second), "3.000000000000000000", "-50", "150"))
	require.NoError(t, agg.RecordTrade(ctx, testPool, base.Add(20*time.Second), "1.000000000000000000", "25", "-25"))

	candles, err := store.GetRange(ctx, testPool, model.Timeframe1m, base.Add(-time.Minute), base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, "2.000000000000000000", c.Open)
	assert.Equal(t, "3.000000000000000000", c.High)
	assert.Equal(t, "1.000000000000000000", c.Low)
	assert.Equal(t, "1.000000000000000000", c.Close)
	assert.Equal(t, "175", c.Volume0)
	assert.Equal(t, "375", c.Volume1)
	assert.Equal(t, 3, c.TradeCount)
}

func TestRecordTradeOHLCSequence(t *testing.T) {
	store := memory.NewCandleStore()
	agg := NewAggregator(store, nil, nil)

	base := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i, price := range []string{
		"100.000000000000000000",
		"105.000000000000000000",
		"98.000000000000000000",
		"102.000000000000000000",
	} {
		ts := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, agg.RecordTrade(ctx, testPool, ts, price, "1", "1"))
	}

	candles, err := store.GetRange(ctx, testPool, model.Timeframe1m, base, base)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.Equal(t, "100.000000000000000000", c.Open)
	assert.Equal(t, "105.000000000000000000", c.High)
	assert.Equal(t, "98.000000000000000000", c.Low)
	assert.Equal(t, "102.000000000000000000", c.Close)
	assert.Equal(t, 4, c.TradeCount)
}

func TestRecordTradeSplitsBucketsAcrossBoundary(t *testing.T) {
	store := memory.NewCandleStore()
	agg := NewAggregator(store, nil, nil)

	ctx := context.Background()
	first := time.Date(2026, 3, 1, 13, 0, 59, 0, time.UTC)
	second := first.Add(2 * time.Second)

	require.NoError(t, agg.RecordTrade(ctx, testPool, first, "1.000000000000000000", "1", "1"))
	require.NoError(t, agg.RecordTrade(ctx, testPool, second, "2.000000000000000000", "1", "1"))

	minutes, err := store.GetRange(ctx, testPool, model.Timeframe1m, first.Add(-time.Minute), second)
	require.NoError(t, err)
	assert.Len(t, minutes, 2)

	hours, err := store.GetRange(ctx, testPool, model.Timeframe1h, first.Add(-time.Hour), second)
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.Equal(t, 2, hours[0].TradeCount)
}
