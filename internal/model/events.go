package model

import (
	"math/big"
	"time"
)

// SwapEvent is a decoded PoolManager Swap log plus its chain coordinates.
type SwapEvent struct {
	PoolID       string
	Sender       string
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
	Fee          uint32
	BlockNumber  uint64
	TxHash       string
	LogIndex     uint64
	Timestamp    time.Time
}

// LiquidityModifiedEvent is a decoded PoolManager ModifyLiquidity log.
type LiquidityModifiedEvent struct {
	PoolID         string
	Sender         string
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int
	Salt           string
	BlockNumber    uint64
	TxHash         string
	LogIndex       uint64
	Timestamp      time.Time
}
