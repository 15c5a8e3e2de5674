package storage

import (
	"context"
	"time"

	"dexstream/internal/model"
)

// TokenStore provides access to token metadata.
type TokenStore interface {
	// Upsert inserts or updates a token keyed by address.
	Upsert(ctx context.Context, token *model.Token) error

	// GetByAddress returns a token. Returns ErrNotFound if it does not exist.
	GetByAddress(ctx context.Context, address string) (*model.Token, error)
}

// PoolStore provides access to pool rows and their cached on-chain state.
type PoolStore interface {
	// Upsert inserts or updates a pool keyed by pool id.
	Upsert(ctx context.Context, pool *model.Pool) error

	// GetByID returns a pool. Returns ErrNotFound if it does not exist.
	GetByID(ctx context.Context, poolID string) (*model.Pool, error)

	// ListActive returns every active pool.
	ListActive(ctx context.Context) ([]*model.Pool, error)

	// List returns active pools with embedded token metadata and cached stats.
	List(ctx context.Context) ([]*model.PoolListing, error)

	// UpdateState overwrites the cached sqrt price, tick and liquidity.
	UpdateState(ctx context.Context, poolID, sqrtPriceX96 string, tick int32, liquidity string) error

	// SetActive flips the active flag. Pools are never deleted.
	SetActive(ctx context.Context, poolID string, active bool) error
}

// SwapStore provides access to immutable trade records.
type SwapStore interface {
	// Insert adds a swap. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
	Insert(ctx context.Context, swap *model.Swap) error

	// GetByPool returns swaps for a pool, newest first, paginated.
	GetByPool(ctx context.Context, poolID string, limit, offset int) ([]*model.Swap, error)

	// GetBySender returns swaps for a trader address, newest first, paginated.
	GetBySender(ctx context.Context, sender string, limit, offset int) ([]*model.Swap, error)

	// WindowTotals returns the trade count and summed absolute volumes for
	// swaps at or after since.
	WindowTotals(ctx context.Context, poolID string, since time.Time) (count int, volume0, volume1 string, err error)

	// OldestPriceSince returns the price of the earliest swap at or after since.
	OldestPriceSince(ctx context.Context, poolID string, since time.Time) (string, bool, error)

	// LatestPrice returns the price of the most recent swap by (block, log index).
	LatestPrice(ctx context.Context, poolID string) (string, bool, error)
}

// LiquidityEventStore provides access to immutable liquidity modifications.
type LiquidityEventStore interface {
	// Insert adds an event. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
	Insert(ctx context.Context, event *model.LiquidityEvent) error

	// GetByPool returns events for a pool, newest first, paginated.
	GetByPool(ctx context.Context, poolID string, limit, offset int) ([]*model.LiquidityEvent, error)
}

// CandleStore provides access to OHLCV aggregates.
type CandleStore interface {
	// ApplyTrade folds one trade into the (pool, timeframe, bucket) candle,
	// creating it when absent, and returns the updated row. The
	// read-modify-write is atomic per key.
	ApplyTrade(ctx context.Context, poolID string, tf model.Timeframe, openTime time.Time, price, volume0, volume1 string) (*model.Candle, error)

	// GetRange returns candles for a pool and timeframe with open time inside
	// [from, to], ascending.
	GetRange(ctx context.Context, poolID string, tf model.Timeframe, from, to time.Time) ([]*model.Candle, error)
}

// CursorStore is the durable per-(pool, event source) block cursor. The store
// does not enforce monotonicity; single-writer callers must never persist a
// smaller block for the same key.
type CursorStore interface {
	// Get returns the last synced block, with found=false when no cursor exists.
	Get(ctx context.Context, poolID, source string) (block uint64, found bool, err error)

	// Set upserts the cursor. Idempotent.
	Set(ctx context.Context, poolID, source string, block uint64) error
}

// StatsStore holds the cached 24h rollup per pool, replaced wholesale.
type StatsStore interface {
	// Replace overwrites the cached stats row for stats.PoolID.
	Replace(ctx context.Context, stats *model.PoolStats) error

	// Get returns cached stats. Returns ErrNotFound when never refreshed.
	Get(ctx context.Context, poolID string) (*model.PoolStats, error)
}
