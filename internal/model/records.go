package model

import "time"

// Swap is an immutable trade record. The (tx_hash, log_index) pair is unique;
// re-inserting it is a no-op, which makes event replay idempotent.
type Swap struct {
	ID             int64     `json:"id,omitempty"`
	PoolID         string    `json:"pool_id"`
	Sender         string    `json:"sender"`
	Amount0        string    `json:"amount0"`
	Amount1        string    `json:"amount1"`
	SqrtPriceX96   string    `json:"sqrt_price_x96"`
	Tick           int32     `json:"tick"`
	Price          string    `json:"price"`
	BlockNumber    uint64    `json:"block_number"`
	TxHash         string    `json:"tx_hash"`
	LogIndex       uint64    `json:"log_index"`
	BlockTimestamp time.Time `json:"block_timestamp"`
}

// LiquidityEvent is an immutable liquidity modification record, keyed like Swap.
type LiquidityEvent struct {
	ID             int64     `json:"id,omitempty"`
	PoolID         string    `json:"pool_id"`
	Sender         string    `json:"sender"`
	TickLower      int32     `json:"tick_lower"`
	TickUpper      int32     `json:"tick_upper"`
	LiquidityDelta string    `json:"liquidity_delta"`
	BlockNumber    uint64    `json:"block_number"`
	TxHash         string    `json:"tx_hash"`
	LogIndex       uint64    `json:"log_index"`
	BlockTimestamp time.Time `json:"block_timestamp"`
}

// Candle is the OHLCV aggregate for one (pool, timeframe, bucket) key.
// High/low/close and the cumulative fields mutate as trades land inside the
// bucket; nothing outside its own bucket ever rewrites it.
type Candle struct {
	PoolID     string    `json:"pool_id"`
	Timeframe  Timeframe `json:"timeframe"`
	OpenTime   time.Time `json:"open_time"`
	Open       string    `json:"open"`
	High       string    `json:"high"`
	Low        string    `json:"low"`
	Close      string    `json:"close"`
	Volume0    string    `json:"volume0"`
	Volume1    string    `json:"volume1"`
	TradeCount int       `json:"trade_count"`
}
