package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

var _ storage.PoolStore = (*PoolStore)(nil)

func (s *PoolStore) Upsert(ctx context.Context, p *model.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id, token0_address, token1_address, fee, tick_spacing, hook_address,
			sqrt_price_x96, current_tick, liquidity, is_active, init_block
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11)
		ON CONFLICT (pool_id) DO UPDATE SET
			token0_address = EXCLUDED.token0_address,
			token1_address = EXCLUDED.token1_address,
			fee = EXCLUDED.fee,
			tick_spacing = EXCLUDED.tick_spacing,
			hook_address = EXCLUDED.hook_address,
			is_active = EXCLUDED.is_active,
			init_block = EXCLUDED.init_block
	`,
		p.PoolID, p.Token0Address, p.Token1Address, p.Fee, p.TickSpacing, p.HookAddress,
		p.SqrtPriceX96, p.CurrentTick, p.Liquidity, p.IsActive, int64(p.InitBlock),
	)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}
	return nil
}

const poolColumns = `
	pool_id, token0_address, token1_address, fee, tick_spacing, hook_address,
	COALESCE(sqrt_price_x96, ''), COALESCE(current_tick, 0), COALESCE(liquidity, ''),
	is_active, COALESCE(init_block, 0)
`

func scanPool(row pgx.Row) (*model.Pool, error) {
	var p model.Pool
	var initBlock int64
	err := row.Scan(
		&p.PoolID, &p.Token0Address, &p.Token1Address, &p.Fee, &p.TickSpacing, &p.HookAddress,
		&p.SqrtPriceX96, &p.CurrentTick, &p.Liquidity, &p.IsActive, &initBlock,
	)
	if err != nil {
		return nil, err
	}
	p.InitBlock = uint64(initBlock)
	return &p, nil
}

func (s *PoolStore) GetByID(ctx context.Context, poolID string) (*model.Pool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE lower(pool_id) = lower($1)`, poolID)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return p, nil
}

func (s *PoolStore) ListActive(ctx context.Context) ([]*model.Pool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE is_active ORDER BY pool_id`)
	if err != nil {
		return nil, fmt.Errorf("list active pools: %w", err)
	}
	defer rows.Close()

	var pools []*model.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}
	return pools, nil
}

func (s *PoolStore) List(ctx context.Context) ([]*model.PoolListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			p.pool_id, p.token0_address, p.token1_address, p.fee, p.tick_spacing, p.hook_address,
			COALESCE(p.sqrt_price_x96, ''), COALESCE(p.current_tick, 0), COALESCE(p.liquidity, ''),
			p.is_active, COALESCE(p.init_block, 0),
			t0.address, t0.name, t0.symbol, t0.decimals, COALESCE(t0.image_url, ''),
			t1.address, t1.name, t1.symbol, t1.decimals, COALESCE(t1.image_url, ''),
			st.price_24h_ago::text, st.price_change_24h::text,
			COALESCE(st.volume_24h_token0, 0)::text, COALESCE(st.volume_24h_token1, 0)::text,
			COALESCE(st.trade_count_24h, 0)
		FROM pools p
		JOIN tokens t0 ON t0.address = p.token0_address
		JOIN tokens t1 ON t1.address = p.token1_address
		LEFT JOIN pool_stats_cache st ON st.pool_id = p.pool_id
		WHERE p.is_active
		ORDER BY p.pool_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var listings []*model.PoolListing
	for rows.Next() {
		var (
			p      model.Pool
			t0, t1 model.Token
			stats  model.PoolStats
			init   int64
		)
		err := rows.Scan(
			&p.PoolID, &p.Token0Address, &p.Token1Address, &p.Fee, &p.TickSpacing, &p.HookAddress,
			&p.SqrtPriceX96, &p.CurrentTick, &p.Liquidity, &p.IsActive, &init,
			&t0.Address, &t0.Name, &t0.Symbol, &t0.Decimals, &t0.ImageURL,
			&t1.Address, &t1.Name, &t1.Symbol, &t1.Decimals, &t1.ImageURL,
			&stats.Price24hAgo, &stats.PriceChange24h,
			&stats.Volume24hToken0, &stats.Volume24hToken1, &stats.TradeCount24h,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pool listing: %w", err)
		}
		p.InitBlock = uint64(init)
		stats.PoolID = p.PoolID

		listing := &model.PoolListing{Pool: p, Token0: &t0, Token1: &t1}
		if stats.TradeCount24h > 0 || stats.Price24hAgo != nil {
			listing.Stats = &stats
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool listings: %w", err)
	}
	return listings, nil
}

func (s *PoolStore) UpdateState(ctx context.Context, poolID, sqrtPriceX96 string, tick int32, liquidity string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools SET sqrt_price_x96 = $2, current_tick = $3, liquidity = $4
		WHERE lower(pool_id) = lower($1)
	`, poolID, sqrtPriceX96, tick, liquidity)
	if err != nil {
		return fmt.Errorf("update pool state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PoolStore) SetActive(ctx context.Context, poolID string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pools SET is_active = $2 WHERE lower(pool_id) = lower($1)`, poolID, active)
	if err != nil {
		return fmt.Errorf("set pool active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
