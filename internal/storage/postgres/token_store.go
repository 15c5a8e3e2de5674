package postgres

import (
	"context"
	"fmt"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

var _ storage.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Upsert(ctx context.Context, token *model.Token) error {
	if token == nil || token.Address == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (address, name, symbol, decimals, image_url)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			image_url = COALESCE(EXCLUDED.image_url, tokens.image_url)
	`, token.Address, token.Name, token.Symbol, token.Decimals, token.ImageURL)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*model.Token, error) {
	var token model.Token
	var imageURL *string
	row := s.pool.QueryRow(ctx, `
		SELECT address, name, symbol, decimals, image_url
		FROM tokens WHERE lower(address) = lower($1)
	`, address)
	if err := row.Scan(&token.Address, &token.Name, &token.Symbol, &token.Decimals, &imageURL); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	if imageURL != nil {
		token.ImageURL = *imageURL
	}
	return &token, nil
}
