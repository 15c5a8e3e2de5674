package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		id SERIAL PRIMARY KEY,
		address VARCHAR(42) NOT NULL UNIQUE,
		name VARCHAR(128) NOT NULL,
		symbol VARCHAR(32) NOT NULL,
		decimals SMALLINT NOT NULL DEFAULT 18,
		image_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS pools (
		id SERIAL PRIMARY KEY,
		pool_id VARCHAR(66) NOT NULL UNIQUE,
		token0_address VARCHAR(42) NOT NULL REFERENCES tokens(address),
		token1_address VARCHAR(42) NOT NULL REFERENCES tokens(address),
		fee INTEGER NOT NULL,
		tick_spacing INTEGER NOT NULL,
		hook_address VARCHAR(42) NOT NULL,
		sqrt_price_x96 VARCHAR(78),
		current_tick INTEGER,
		liquidity VARCHAR(78),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		init_block BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS swaps (
		id BIGSERIAL PRIMARY KEY,
		pool_id VARCHAR(66) NOT NULL REFERENCES pools(pool_id),
		sender VARCHAR(42) NOT NULL,
		amount0 NUMERIC(78,0) NOT NULL,
		amount1 NUMERIC(78,0) NOT NULL,
		sqrt_price_x96 VARCHAR(78) NOT NULL,
		tick INTEGER NOT NULL,
		price NUMERIC(38,18) NOT NULL,
		block_number BIGINT NOT NULL,
		tx_hash VARCHAR(66) NOT NULL,
		log_index INTEGER NOT NULL,
		block_timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS swaps_tx_log_idx ON swaps (tx_hash, log_index)`,
	`CREATE INDEX IF NOT EXISTS swaps_pool_time_idx ON swaps (pool_id, block_timestamp)`,
	`CREATE INDEX IF NOT EXISTS swaps_sender_idx ON swaps (sender)`,
	`CREATE TABLE IF NOT EXISTS liquidity_events (
		id BIGSERIAL PRIMARY KEY,
		pool_id VARCHAR(66) NOT NULL REFERENCES pools(pool_id),
		sender VARCHAR(42) NOT NULL,
		tick_lower INTEGER NOT NULL,
		tick_upper INTEGER NOT NULL,
		liquidity_delta NUMERIC(78,0) NOT NULL,
		block_number BIGINT NOT NULL,
		tx_hash VARCHAR(66) NOT NULL,
		log_index INTEGER NOT NULL,
		block_timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS liq_events_tx_log_idx ON liquidity_events (tx_hash, log_index)`,
	`CREATE TABLE IF NOT EXISTS candles (
		id BIGSERIAL PRIMARY KEY,
		pool_id VARCHAR(66) NOT NULL REFERENCES pools(pool_id),
		timeframe VARCHAR(4) NOT NULL,
		open_time TIMESTAMPTZ NOT NULL,
		open NUMERIC(38,18) NOT NULL,
		high NUMERIC(38,18) NOT NULL,
		low NUMERIC(38,18) NOT NULL,
		close NUMERIC(38,18) NOT NULL,
		volume0 NUMERIC(78,0) NOT NULL DEFAULT 0,
		volume1 NUMERIC(78,0) NOT NULL DEFAULT 0,
		trade_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS candles_pool_tf_time_idx ON candles (pool_id, timeframe, open_time)`,
	`CREATE TABLE IF NOT EXISTS indexer_state (
		id SERIAL PRIMARY KEY,
		pool_id VARCHAR(66) NOT NULL,
		event_source VARCHAR(32) NOT NULL,
		last_synced_block BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS indexer_state_pool_source_idx ON indexer_state (pool_id, event_source)`,
	`CREATE TABLE IF NOT EXISTS pool_stats_cache (
		id SERIAL PRIMARY KEY,
		pool_id VARCHAR(66) NOT NULL UNIQUE REFERENCES pools(pool_id),
		price_24h_ago NUMERIC(38,18),
		price_change_24h NUMERIC(10,4),
		volume_24h_token0 NUMERIC(78,0) DEFAULT 0,
		volume_24h_token1 NUMERIC(78,0) DEFAULT 0,
		trade_count_24h INTEGER DEFAULT 0
	)`,
}

// EnsureSchema creates the relational layout when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
