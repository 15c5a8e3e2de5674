package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// LiquidityEventStore is an in-memory implementation of storage.LiquidityEventStore.
type LiquidityEventStore struct {
	mu   sync.RWMutex
	data map[string]*model.LiquidityEvent
}

// NewLiquidityEventStore creates a new in-memory liquidity event store.
func NewLiquidityEventStore() *LiquidityEventStore {
	return &LiquidityEventStore{data: make(map[string]*model.LiquidityEvent)}
}

var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)

func (s *LiquidityEventStore) Insert(_ context.Context, event *model.LiquidityEvent) error {
	if event == nil || event.PoolID == "" || event.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey(event.TxHash, event.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *event
	s.data[key] = &cp
	return nil
}

func (s *LiquidityEventStore) GetByPool(_ context.Context, poolID string, limit, offset int) ([]*model.LiquidityEvent, error) {
	s.mu.RLock()
	var matched []*model.LiquidityEvent
	for _, event := range s.data {
		if strings.EqualFold(event.PoolID, poolID) {
			cp := *event
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[j], matched[i]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
