package memory

import (
	"context"
	"strings"
	"sync"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// StatsStore is an in-memory implementation of storage.StatsStore.
type StatsStore struct {
	mu   sync.RWMutex
	data map[string]*model.PoolStats
}

// NewStatsStore creates a new in-memory stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{data: make(map[string]*model.PoolStats)}
}

var _ storage.StatsStore = (*StatsStore)(nil)

func (s *StatsStore) Replace(_ context.Context, stats *model.PoolStats) error {
	if stats == nil || stats.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyStats(stats)
	s.data[strings.ToLower(stats.PoolID)] = cp
	return nil
}

func (s *StatsStore) Get(_ context.Context, poolID string) (*model.PoolStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.data[strings.ToLower(poolID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyStats(stats), nil
}

func copyStats(stats *model.PoolStats) *model.PoolStats {
	cp := *stats
	if stats.Price24hAgo != nil {
		v := *stats.Price24hAgo
		cp.Price24hAgo = &v
	}
	if stats.PriceChange24h != nil {
		v := *stats.PriceChange24h
		cp.PriceChange24h = &v
	}
	return &cp
}
