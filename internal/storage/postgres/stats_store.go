package postgres

import (
	"context"
	"fmt"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// StatsStore implements storage.StatsStore using PostgreSQL.
type StatsStore struct {
	pool *Pool
}

// NewStatsStore creates a new StatsStore.
func NewStatsStore(pool *Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

var _ storage.StatsStore = (*StatsStore)(nil)

func (s *StatsStore) Replace(ctx context.Context, stats *model.PoolStats) error {
	if stats == nil || stats.PoolID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_stats_cache (
			pool_id, price_24h_ago, price_change_24h, volume_24h_token0, volume_24h_token1, trade_count_24h
		) VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6)
		ON CONFLICT (pool_id) DO UPDATE SET
			price_24h_ago = EXCLUDED.price_24h_ago,
			price_change_24h = EXCLUDED.price_change_24h,
			volume_24h_token0 = EXCLUDED.volume_24h_token0,
			volume_24h_token1 = EXCLUDED.volume_24h_token1,
			trade_count_24h = EXCLUDED.trade_count_24h
	`,
		stats.PoolID, stats.Price24hAgo, stats.PriceChange24h,
		stats.Volume24hToken0, stats.Volume24hToken1, stats.TradeCount24h,
	)
	if err != nil {
		return fmt.Errorf("replace pool stats: %w", err)
	}
	return nil
}

func (s *StatsStore) Get(ctx context.Context, poolID string) (*model.PoolStats, error) {
	var stats model.PoolStats
	row := s.pool.QueryRow(ctx, `
		SELECT pool_id, price_24h_ago::text, price_change_24h::text,
			COALESCE(volume_24h_token0, 0)::text, COALESCE(volume_24h_token1, 0)::text,
			COALESCE(trade_count_24h, 0)
		FROM pool_stats_cache
		WHERE lower(pool_id) = lower($1)
	`, poolID)
	err := row.Scan(
		&stats.PoolID, &stats.Price24hAgo, &stats.PriceChange24h,
		&stats.Volume24hToken0, &stats.Volume24hToken1, &stats.TradeCount24h,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool stats: %w", err)
	}
	return &stats, nil
}
