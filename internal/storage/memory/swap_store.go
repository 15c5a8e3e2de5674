package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// SwapStore is an in-memory implementation of storage.SwapStore.
type SwapStore struct {
	mu   sync.RWMutex
	data map[string]*model.Swap
}

// NewSwapStore creates a new in-memory swap store.
func NewSwapStore() *SwapStore {
	return &SwapStore{data: make(map[string]*model.Swap)}
}

var _ storage.SwapStore = (*SwapStore)(nil)

func eventKey(txHash string, logIndex uint64) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(txHash), logIndex)
}

func (s *SwapStore) Insert(_ context.Context, swap *model.Swap) error {
	if swap == nil || swap.PoolID == "" || swap.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey(swap.TxHash, swap.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *swap
	s.data[key] = &cp
	return nil
}

func (s *SwapStore) GetByPool(_ context.Context, poolID string, limit, offset int) ([]*model.Swap, error) {
	s.mu.RLock()
	var matched []*model.Swap
	for _, swap := range s.data {
		if strings.EqualFold(swap.PoolID, poolID) {
			cp := *swap
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	return paginate(matched, limit, offset), nil
}

func (s *SwapStore) GetBySender(_ context.Context, sender string, limit, offset int) ([]*model.Swap, error) {
	s.mu.RLock()
	var matched []*model.Swap
	for _, swap := range s.data {
		if strings.EqualFold(swap.Sender, sender) {
			cp := *swap
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)
	return paginate(matched, limit, offset), nil
}

func (s *SwapStore) WindowTotals(_ context.Context, poolID string, since time.Time) (int, string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	vol0 := new(big.Int)
	vol1 := new(big.Int)
	for _, swap := range s.data {
		if !strings.EqualFold(swap.PoolID, poolID) || swap.BlockTimestamp.Before(since) {
			continue
		}
		count++
		addAbs(vol0, swap.Amount0)
		addAbs(vol1, swap.Amount1)
	}
	return count, vol0.String(), vol1.String(), nil
}

func (s *SwapStore) OldestPriceSince(_ context.Context, poolID string, since time.Time) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest *model.Swap
	for _, swap := range s.data {
		if !strings.EqualFold(swap.PoolID, poolID) || swap.BlockTimestamp.Before(since) {
			continue
		}
		if oldest == nil || earlier(swap, oldest) {
			oldest = swap
		}
	}
	if oldest == nil {
		return "", false, nil
	}
	return oldest.Price, true, nil
}

func (s *SwapStore) LatestPrice(_ context.Context, poolID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Swap
	for _, swap := range s.data {
		if !strings.EqualFold(swap.PoolID, poolID) {
			continue
		}
		if latest == nil || earlier(latest, swap) {
			latest = swap
		}
	}
	if latest == nil {
		return "", false, nil
	}
	return latest.Price, true, nil
}

func earlier(a, b *model.Swap) bool {
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.LogIndex < b.LogIndex
}

func sortNewestFirst(swaps []*model.Swap) {
	sort.Slice(swaps, func(i, j int) bool {
		return earlier(swaps[j], swaps[i])
	})
}

func paginate(swaps []*model.Swap, limit, offset int) []*model.Swap {
	if offset >= len(swaps) {
		return nil
	}
	swaps = swaps[offset:]
	if limit > 0 && limit < len(swaps) {
		swaps = swaps[:limit]
	}
	return swaps
}

func addAbs(sum *big.Int, amount string) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return
	}
	sum.Add(sum, v.Abs(v))
}
