package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dexstream/internal/candle"
	"dexstream/internal/model"
	"dexstream/internal/observability"
	"dexstream/internal/pricing"
	"dexstream/internal/storage"
)

// Publisher delivers real-time updates to subscribers.
type Publisher interface {
	Publish(channel string, data any)
}

// PriceUpdate is the payload on a pool's price channel.
type PriceUpdate struct {
	PoolID       string    `json:"pool_id"`
	Price        string    `json:"price"`
	Tick         int32     `json:"tick"`
	SqrtPriceX96 string    `json:"sqrt_price_x96"`
	BlockNumber  uint64    `json:"block_number"`
	Timestamp    time.Time `json:"timestamp"`
}

// Handler persists decoded events and fans them out. One handler serves
// every pool; token decimals are passed per call because they differ
// per pool.
type Handler struct {
	swaps     storage.SwapStore
	liquidity storage.LiquidityEventStore
	pools     storage.PoolStore
	candles   *candle.Aggregator
	pub       Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewHandler(
	swaps storage.SwapStore,
	liquidity storage.LiquidityEventStore,
	pools storage.PoolStore,
	candles *candle.Aggregator,
	pub Publisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		swaps:     swaps,
		liquidity: liquidity,
		pools:     pools,
		candles:   candles,
		pub:       pub,
		metrics:   metrics,
		logger:    logger,
	}
}

// TradesChannel returns the broadcast channel name for a pool's swaps.
func TradesChannel(poolID string) string {
	return fmt.Sprintf("pool:%s:trades", poolID)
}

// PriceChannel returns the broadcast channel name for a pool's price.
func PriceChannel(poolID string) string {
	return fmt.Sprintf("pool:%s:price", poolID)
}

// HandleSwap stores the swap, refreshes cached pool state, folds the
// trade into candles and broadcasts it. A swap that was already stored
// is skipped without touching candles or subscribers, so replaying a
// block range cannot double count.
func (h *Handler) HandleSwap(ctx context.Context, ev *model.SwapEvent, decimals0, decimals1 int) error {
	price := pricing.PriceFromSqrtRatio(ev.SqrtPriceX96, decimals0, decimals1)

	swap := &model.Swap{
		PoolID:         ev.PoolID,
		Sender:         ev.Sender,
		Amount0:        ev.Amount0.String(),
		Amount1:        ev.Amount1.String(),
		SqrtPriceX96:   ev.SqrtPriceX96.String(),
		Tick:           ev.Tick,
		Price:          price,
		BlockNumber:    ev.BlockNumber,
		TxHash:         ev.TxHash,
		LogIndex:       ev.LogIndex,
		BlockTimestamp: ev.Timestamp,
	}

	if err := h.swaps.Insert(ctx, swap); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			if h.metrics != nil {
				h.metrics.DuplicateEventsSkipped.Inc()
			}
			h.logger.Debug("skipping duplicate swap",
				zap.String("tx_hash", ev.TxHash), zap.Uint64("log_index", ev.LogIndex))
			return nil
		}
		return fmt.Errorf("insert swap: %w", err)
	}

	if err := h.pools.UpdateState(ctx, ev.PoolID, ev.SqrtPriceX96.String(), ev.Tick, ev.Liquidity.String()); err != nil {
		return fmt.Errorf("update pool state: %w", err)
	}

	if err := h.candles.RecordTrade(ctx, ev.PoolID, ev.Timestamp, price, swap.Amount0, swap.Amount1); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}

	if h.metrics != nil {
		h.metrics.SwapEventsProcessed.Inc()
		for _, tf := range model.Timeframes {
			h.metrics.CandlesUpdated.WithLabelValues(string(tf)).Inc()
		}
	}

	if h.pub != nil {
		h.pub.Publish(TradesChannel(ev.PoolID), swap)
		h.pub.Publish(PriceChannel(ev.PoolID), &PriceUpdate{
			PoolID:       ev.PoolID,
			Price:        price,
			Tick:         ev.Tick,
			SqrtPriceX96: ev.SqrtPriceX96.String(),
			BlockNumber:  ev.BlockNumber,
			Timestamp:    ev.Timestamp,
		})
	}

	return nil
}

// HandleLiquidity stores a liquidity modification. Duplicates are
// skipped the same way as swaps.
func (h *Handler) HandleLiquidity(ctx context.Context, ev *model.LiquidityModifiedEvent) error {
	record := &model.LiquidityEvent{
		PoolID:         ev.PoolID,
		Sender:         ev.Sender,
		TickLower:      ev.TickLower,
		TickUpper:      ev.TickUpper,
		LiquidityDelta: ev.LiquidityDelta.String(),
		BlockNumber:    ev.BlockNumber,
		TxHash:         ev.TxHash,
		LogIndex:       ev.LogIndex,
		BlockTimestamp: ev.Timestamp,
	}

	if err := h.liquidity.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			if h.metrics != nil {
				h.metrics.DuplicateEventsSkipped.Inc()
			}
			return nil
		}
		return fmt.Errorf("insert liquidity event: %w", err)
	}

	if h.metrics != nil {
		h.metrics.LiquidityEventsProcessed.Inc()
	}
	return nil
}
