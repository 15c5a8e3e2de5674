package postgres

import (
	"context"
	"fmt"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// LiquidityEventStore implements storage.LiquidityEventStore using PostgreSQL.
type LiquidityEventStore struct {
	pool *Pool
}

// NewLiquidityEventStore creates a new LiquidityEventStore.
func NewLiquidityEventStore(pool *Pool) *LiquidityEventStore {
	return &LiquidityEventStore{pool: pool}
}

var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)

func (s *LiquidityEventStore) Insert(ctx context.Context, event *model.LiquidityEvent) error {
	if event == nil || event.PoolID == "" || event.TxHash == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO liquidity_events (
			pool_id, sender, tick_lower, tick_upper, liquidity_delta,
			block_number, tx_hash, log_index, block_timestamp
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
	`,
		event.PoolID, event.Sender, event.TickLower, event.TickUpper, event.LiquidityDelta,
		int64(event.BlockNumber), event.TxHash, int64(event.LogIndex), event.BlockTimestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert liquidity event: %w", err)
	}
	return nil
}

func (s *LiquidityEventStore) GetByPool(ctx context.Context, poolID string, limit, offset int) ([]*model.LiquidityEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, pool_id, sender, tick_lower, tick_upper, liquidity_delta::text,
			block_number, tx_hash, log_index, block_timestamp
		FROM liquidity_events
		WHERE lower(pool_id) = lower($1)
		ORDER BY block_number DESC, log_index DESC
		LIMIT $2 OFFSET $3
	`, poolID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get liquidity events: %w", err)
	}
	defer rows.Close()

	var events []*model.LiquidityEvent
	for rows.Next() {
		var event model.LiquidityEvent
		var blockNumber, logIndex int64
		err := rows.Scan(
			&event.ID, &event.PoolID, &event.Sender, &event.TickLower, &event.TickUpper,
			&event.LiquidityDelta, &blockNumber, &event.TxHash, &logIndex, &event.BlockTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan liquidity event row: %w", err)
		}
		event.BlockNumber = uint64(blockNumber)
		event.LogIndex = uint64(logIndex)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidity event rows: %w", err)
	}
	return events, nil
}
