package memory

import (
	"context"
	"strings"
	"sync"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*model.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{data: make(map[string]*model.Token)}
}

var _ storage.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Upsert(_ context.Context, token *model.Token) error {
	if token == nil || token.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.data[strings.ToLower(token.Address)] = &cp
	return nil
}

func (s *TokenStore) GetByAddress(_ context.Context, address string) (*model.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.data[strings.ToLower(address)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *token
	return &cp, nil
}
