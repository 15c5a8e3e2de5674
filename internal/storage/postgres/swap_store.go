package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// SwapStore implements storage.SwapStore using PostgreSQL.
type SwapStore struct {
	pool *Pool
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(pool *Pool) *SwapStore {
	return &SwapStore{pool: pool}
}

var _ storage.SwapStore = (*SwapStore)(nil)

func (s *SwapStore) Insert(ctx context.Context, swap *model.Swap) error {
	if swap == nil || swap.PoolID == "" || swap.TxHash == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO swaps (
			pool_id, sender, amount0, amount1, sqrt_price_x96, tick, price,
			block_number, tx_hash, log_index, block_timestamp
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7::numeric, $8, $9, $10, $11)
	`,
		swap.PoolID, swap.Sender, swap.Amount0, swap.Amount1, swap.SqrtPriceX96,
		swap.Tick, swap.Price, int64(swap.BlockNumber), swap.TxHash, int64(swap.LogIndex),
		swap.BlockTimestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

const swapColumns = `
	id, pool_id, sender, amount0::text, amount1::text, sqrt_price_x96, tick,
	price::text, block_number, tx_hash, log_index, block_timestamp
`

func (s *SwapStore) GetByPool(ctx context.Context, poolID string, limit, offset int) ([]*model.Swap, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+swapColumns+` FROM swaps
		WHERE lower(pool_id) = lower($1)
		ORDER BY block_number DESC, log_index DESC
		LIMIT $2 OFFSET $3
	`, poolID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get swaps by pool: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

func (s *SwapStore) GetBySender(ctx context.Context, sender string, limit, offset int) ([]*model.Swap, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+swapColumns+` FROM swaps
		WHERE lower(sender) = lower($1)
		ORDER BY block_number DESC, log_index DESC
		LIMIT $2 OFFSET $3
	`, sender, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get swaps by sender: %w", err)
	}
	defer rows.Close()

	return scanSwaps(rows)
}

func (s *SwapStore) WindowTotals(ctx context.Context, poolID string, since time.Time) (int, string, string, error) {
	var count int
	var vol0, vol1 string
	row := s.pool.QueryRow(ctx, `
		SELECT count(*)::int,
			COALESCE(sum(abs(amount0)), 0)::text,
			COALESCE(sum(abs(amount1)), 0)::text
		FROM swaps
		WHERE lower(pool_id) = lower($1) AND block_timestamp >= $2
	`, poolID, since)
	if err := row.Scan(&count, &vol0, &vol1); err != nil {
		return 0, "", "", fmt.Errorf("window totals: %w", err)
	}
	return count, vol0, vol1, nil
}

func (s *SwapStore) OldestPriceSince(ctx context.Context, poolID string, since time.Time) (string, bool, error) {
	var price string
	row := s.pool.QueryRow(ctx, `
		SELECT price::text FROM swaps
		WHERE lower(pool_id) = lower($1) AND block_timestamp >= $2
		ORDER BY block_number ASC, log_index ASC
		LIMIT 1
	`, poolID, since)
	if err := row.Scan(&price); err != nil {
		if isNotFoundError(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("oldest price: %w", err)
	}
	return price, true, nil
}

func (s *SwapStore) LatestPrice(ctx context.Context, poolID string) (string, bool, error) {
	var price string
	row := s.pool.QueryRow(ctx, `
		SELECT price::text FROM swaps
		WHERE lower(pool_id) = lower($1)
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1
	`, poolID)
	if err := row.Scan(&price); err != nil {
		if isNotFoundError(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("latest price: %w", err)
	}
	return price, true, nil
}

func scanSwaps(rows pgx.Rows) ([]*model.Swap, error) {
	var swaps []*model.Swap
	for rows.Next() {
		var swap model.Swap
		var blockNumber, logIndex int64
		err := rows.Scan(
			&swap.ID, &swap.PoolID, &swap.Sender, &swap.Amount0, &swap.Amount1,
			&swap.SqrtPriceX96, &swap.Tick, &swap.Price, &blockNumber, &swap.TxHash,
			&logIndex, &swap.BlockTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}
		swap.BlockNumber = uint64(blockNumber)
		swap.LogIndex = uint64(logIndex)
		swaps = append(swaps, &swap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}
	return swaps, nil
}
