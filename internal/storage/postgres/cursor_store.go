package postgres

import (
	"context"
	"fmt"

	"dexstream/internal/storage"
)

// CursorStore implements storage.CursorStore using PostgreSQL.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

var _ storage.CursorStore = (*CursorStore)(nil)

func (s *CursorStore) Get(ctx context.Context, poolID, source string) (uint64, bool, error) {
	var block int64
	row := s.pool.QueryRow(ctx, `
		SELECT last_synced_block FROM indexer_state
		WHERE lower(pool_id) = lower($1) AND event_source = $2
	`, poolID, source)
	if err := row.Scan(&block); err != nil {
		if isNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get cursor: %w", err)
	}
	return uint64(block), true, nil
}

func (s *CursorStore) Set(ctx context.Context, poolID, source string, block uint64) error {
	if poolID == "" || source == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (pool_id, event_source, last_synced_block)
		VALUES ($1, $2, $3)
		ON CONFLICT (pool_id, event_source)
		DO UPDATE SET last_synced_block = EXCLUDED.last_synced_block
	`, poolID, source, int64(block))
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
