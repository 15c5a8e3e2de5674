package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dexstream/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu   sync.RWMutex
	data map[string]uint64
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{data: make(map[string]uint64)}
}

var _ storage.CursorStore = (*CursorStore)(nil)

func cursorKey(poolID, source string) string {
	return fmt.Sprintf("%s|%s", strings.ToLower(poolID), source)
}

func (s *CursorStore) Get(_ context.Context, poolID, source string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.data[cursorKey(poolID, source)]
	return block, ok, nil
}

func (s *CursorStore) Set(_ context.Context, poolID, source string, block uint64) error {
	if poolID == "" || source == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[cursorKey(poolID, source)] = block
	return nil
}
