package model

// Token is an ERC-20 token referenced by a pool.
type Token struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	ImageURL string `json:"image_url,omitempty"`
}

// Pool is a trading venue for one token pair. The cached sqrt price, tick and
// liquidity reflect the last applied swap; they are overwritten wholesale on
// every swap. Pools are deactivated, never deleted.
type Pool struct {
	PoolID        string `json:"pool_id"`
	Token0Address string `json:"token0_address"`
	Token1Address string `json:"token1_address"`
	Fee           uint32 `json:"fee"`
	TickSpacing   int32  `json:"tick_spacing"`
	HookAddress   string `json:"hook_address"`
	SqrtPriceX96  string `json:"sqrt_price_x96,omitempty"`
	CurrentTick   int32  `json:"current_tick"`
	Liquidity     string `json:"liquidity,omitempty"`
	IsActive      bool   `json:"is_active"`
	InitBlock     uint64 `json:"init_block"`
}

// PoolListing embeds token metadata and cached stats alongside a pool row.
type PoolListing struct {
	Pool   Pool       `json:"pool"`
	Token0 *Token     `json:"token0,omitempty"`
	Token1 *Token     `json:"token1,omitempty"`
	Stats  *PoolStats `json:"stats,omitempty"`
}

// PoolStats is the cached trailing-24h rollup for one pool, fully derivable
// from swap records and replaced wholesale on each refresh.
type PoolStats struct {
	PoolID          string  `json:"pool_id"`
	Price24hAgo     *string `json:"price_24h_ago"`
	PriceChange24h  *string `json:"price_change_24h"`
	Volume24hToken0 string  `json:"volume_24h_token0"`
	Volume24hToken1 string  `json:"volume_24h_token1"`
	TradeCount24h   int     `json:"trade_count_24h"`
}
