package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexstream/internal/model"
	"dexstream/internal/storage"
	"dexstream/internal/storage/memory"
)

const testPool = "0x6c9d034b2f5b6d8e9ab7f1c2d3e4f5061728394a5b6c7d8e9f001122334455aa"

func insertSwap(t *testing.T, swaps *memory.SwapStore, block uint64, ts time.Time, price, amount0, amount1 string) {
	t.Helper()
	err := swaps.Insert(context.Background(), &model.Swap{
		PoolID:         testPool,
		Sender:         "0x2222222222222222222222222222222222222222",
		Amount0:        amount0,
		Amount1:        amount1,
		SqrtPriceX96:   "0",
		Price:          price,
		BlockNumber:    block,
		TxHash:         fmt.Sprintf("0x%064d", block),
		LogIndex:       block,
		BlockTimestamp: ts,
	})
	require.NoError(t, err)
}

func newTestAggregator(swaps *memory.SwapStore, pools *memory.PoolStore, stats *memory.StatsStore, now time.Time) *Aggregator {
	a := NewAggregator(swaps, pools, stats, nil, nil)
	a.now = func() time.Time { return now }
	return a
}

func TestRefreshComputesWindow(t *testing.T) {
	ctx := context.Background()
	swaps := memory.NewSwapStore()
	stats := memory.NewStatsStore()
	pools := memory.NewPoolStore(nil, stats)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	// Outside the window, must be ignored.
	insertSwap(t, swaps, 1, now.Add(-25*time.Hour), "0.500000000000000000", "-10", "5")
	// Oldest inside the window.
	insertSwap(t, swaps, 2, now.Add(-23*time.Hour), "1.000000000000000000", "-100", "100")
	// Latest.
	insertSwap(t, swaps, 3, now.Add(-time.Hour), "1.500000000000000000", "200", "-300")

	a := newTestAggregator(swaps, pools, stats, now)
	got, err := a.Refresh(ctx, testPool)
	require.NoError(t, err)

	assert.Equal(t, 2, got.TradeCount24h)
	assert.Equal(t, "300", got.Volume24hToken0)
	assert.Equal(t, "400", got.Volume24hToken1)
	require.NotNil(t, got.Price24hAgo)
	assert.Equal(t, "1.000000000000000000", *got.Price24hAgo)
	require.NotNil(t, got.PriceChange24h)
	assert.Equal(t, "50.0000", *got.PriceChange24h)

	cached, err := stats.Get(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, got.TradeCount24h, cached.TradeCount24h)

	// Refreshing again with no new trades yields the same rollup.
	again, err := a.Refresh(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestRefreshNoTrades(t *testing.T) {
	ctx := context.Background()
	swaps := memory.NewSwapStore()
	stats := memory.NewStatsStore()
	pools := memory.NewPoolStore(nil, stats)

	a := newTestAggregator(swaps, pools, stats, time.Now())
	got, err := a.Refresh(ctx, testPool)
	require.NoError(t, err)

	assert.Equal(t, 0, got.TradeCount24h)
	assert.Equal(t, "0", got.Volume24hToken0)
	assert.Equal(t, "0", got.Volume24hToken1)
	assert.Nil(t, got.Price24hAgo)
	assert.Nil(t, got.PriceChange24h)
}

func TestRefreshAllSkipsInactive(t *testing.T) {
	ctx := context.Background()
	swaps := memory.NewSwapStore()
	stats := memory.NewStatsStore()
	pools := memory.NewPoolStore(nil, stats)

	require.NoError(t, pools.Upsert(ctx, &model.Pool{PoolID: testPool, IsActive: true}))
	require.NoError(t, pools.Upsert(ctx, &model.Pool{
		PoolID:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		IsActive: false,
	}))

	a := newTestAggregator(swaps, pools, stats, time.Now())
	require.NoError(t, a.RefreshAll(ctx))

	_, err := stats.Get(ctx, testPool)
	require.NoError(t, err)

	_, err = stats.Get(ctx, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
