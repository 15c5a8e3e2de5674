package indexer

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexstream/internal/candle"
	"dexstream/internal/model"
	"dexstream/internal/storage/memory"
)

type capturingPublisher struct {
	messages map[string][]any
}

func (p *capturingPublisher) Publish(channel string, data any) {
	if p.messages == nil {
		p.messages = make(map[string][]any)
	}
	p.messages[channel] = append(p.messages[channel], data)
}

func testSwapEvent() *model.SwapEvent {
	return &model.SwapEvent{
		PoolID:       testPoolID,
		Sender:       testSender.Hex(),
		Amount0:      big.NewInt(-1000),
		Amount1:      big.NewInt(2000),
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		Liquidity:    big.NewInt(1_000_000),
		Tick:         42,
		Fee:          3000,
		BlockNumber:  100,
		TxHash:       "0xdeadbeef00000000000000000000000000000000000000000000000000000001",
		LogIndex:     7,
		Timestamp:    time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestHandleSwapBroadcasts(t *testing.T) {
	ctx := context.Background()
	pools := memory.NewPoolStore(nil, nil)
	require.NoError(t, pools.Upsert(ctx, &model.Pool{PoolID: testPoolID, IsActive: true}))

	pub := &capturingPublisher{}
	h := NewHandler(memory.NewSwapStore(), memory.NewLiquidityEventStore(), pools,
		candle.NewAggregator(memory.NewCandleStore(), nil, nil), pub, nil, nil)

	require.NoError(t, h.HandleSwap(ctx, testSwapEvent(), 18, 18))

	trades := pub.messages[TradesChannel(testPoolID)]
	require.Len(t, trades, 1)
	swap := trades[0].(*model.Swap)
	assert.Equal(t, "-1000", swap.Amount0)
	assert.Equal(t, "1.000000000000000000", swap.Price)

	prices := pub.messages[PriceChannel(testPoolID)]
	require.Len(t, prices, 1)
	update := prices[0].(*PriceUpdate)
	assert.Equal(t, "1.000000000000000000", update.Price)
	assert.Equal(t, int32(42), update.Tick)
	assert.Equal(t, "79228162514264337593543950336", update.SqrtPriceX96)
}

func TestHandleSwapDuplicateIsSilent(t *testing.T) {
	ctx := context.Background()
	pools := memory.NewPoolStore(nil, nil)
	require.NoError(t, pools.Upsert(ctx, &model.Pool{PoolID: testPoolID, IsActive: true}))

	pub := &capturingPublisher{}
	candles := memory.NewCandleStore()
	h := NewHandler(memory.NewSwapStore(), memory.NewLiquidityEventStore(), pools,
		candle.NewAggregator(candles, nil, nil), pub, nil, nil)

	ev := testSwapEvent()
	require.NoError(t, h.HandleSwap(ctx, ev, 18, 18))
	require.NoError(t, h.HandleSwap(ctx, ev, 18, 18))

	assert.Len(t, pub.messages[TradesChannel(testPoolID)], 1)

	got, err := candles.GetRange(ctx, testPoolID, model.Timeframe1m, time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].TradeCount)
}

func TestHandleLiquidityDuplicateIsSilent(t *testing.T) {
	ctx := context.Background()
	h := NewHandler(memory.NewSwapStore(), memory.NewLiquidityEventStore(), memory.NewPoolStore(nil, nil),
		candle.NewAggregator(memory.NewCandleStore(), nil, nil), nil, nil, nil)

	ev := &model.LiquidityModifiedEvent{
		PoolID:         testPoolID,
		Sender:         testSender.Hex(),
		TickLower:      -600,
		TickUpper:      600,
		LiquidityDelta: big.NewInt(5),
		BlockNumber:    100,
		TxHash:         "0xdeadbeef00000000000000000000000000000000000000000000000000000002",
		LogIndex:       1,
		Timestamp:      time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, h.HandleLiquidity(ctx, ev))
	require.NoError(t, h.HandleLiquidity(ctx, ev))
}
