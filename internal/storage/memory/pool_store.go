package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore. Listing
// resolves tokens and stats from sibling stores when they are provided.
type PoolStore struct {
	mu     sync.RWMutex
	data   map[string]*model.Pool
	tokens *TokenStore
	stats  *StatsStore
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore(tokens *TokenStore, stats *StatsStore) *PoolStore {
	return &PoolStore{
		data:   make(map[string]*model.Pool),
		tokens: tokens,
		stats:  stats,
	}
}

var _ storage.PoolStore = (*PoolStore)(nil)

func (s *PoolStore) Upsert(_ context.Context, pool *model.Pool) error {
	if pool == nil || pool.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *pool
	s.data[strings.ToLower(pool.PoolID)] = &cp
	return nil
}

func (s *PoolStore) GetByID(_ context.Context, poolID string) (*model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.data[strings.ToLower(poolID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *pool
	return &cp, nil
}

func (s *PoolStore) ListActive(_ context.Context) ([]*model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Pool
	for _, pool := range s.data {
		if pool.IsActive {
			cp := *pool
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PoolID < result[j].PoolID
	})
	return result, nil
}

func (s *PoolStore) List(ctx context.Context) ([]*model.PoolListing, error) {
	pools, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]*model.PoolListing, 0, len(pools))
	for _, pool := range pools {
		listing := &model.PoolListing{Pool: *pool}
		if s.tokens != nil {
			if t0, err := s.tokens.GetByAddress(ctx, pool.Token0Address); err == nil {
				listing.Token0 = t0
			}
			if t1, err := s.tokens.GetByAddress(ctx, pool.Token1Address); err == nil {
				listing.Token1 = t1
			}
		}
		if s.stats != nil {
			if st, err := s.stats.Get(ctx, pool.PoolID); err == nil {
				listing.Stats = st
			}
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *PoolStore) UpdateState(_ context.Context, poolID, sqrtPriceX96 string, tick int32, liquidity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.data[strings.ToLower(poolID)]
	if !ok {
		return storage.ErrNotFound
	}
	pool.SqrtPriceX96 = sqrtPriceX96
	pool.CurrentTick = tick
	pool.Liquidity = liquidity
	return nil
}

func (s *PoolStore) SetActive(_ context.Context, poolID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.data[strings.ToLower(poolID)]
	if !ok {
		return storage.ErrNotFound
	}
	pool.IsActive = active
	return nil
}
