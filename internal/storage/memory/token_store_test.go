package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	s := NewTokenStore()
	ctx := context.Background()

	_, err := s.GetByAddress(ctx, "0xa0")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, &model.Token{Address: "0xA0", Symbol: "WETH", Decimals: 18}))

	got, err := s.GetByAddress(ctx, "0xa0")
	require.NoError(t, err)
	assert.Equal(t, "WETH", got.Symbol)
	assert.Equal(t, 18, got.Decimals)

	require.NoError(t, s.Upsert(ctx, &model.Token{Address: "0xa0", Symbol: "WETH9", Decimals: 18}))
	got, err = s.GetByAddress(ctx, "0xA0")
	require.NoError(t, err)
	assert.Equal(t, "WETH9", got.Symbol)
}

func TestStatsStoreReplaceIsWholesale(t *testing.T) {
	s := NewStatsStore()
	ctx := context.Background()

	_, err := s.Get(ctx, poolA)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	price := "1.000000000000000000"
	change := "2.5000"
	require.NoError(t, s.Replace(ctx, &model.PoolStats{
		PoolID:          poolA,
		Price24hAgo:     &price,
		PriceChange24h:  &change,
		Volume24hToken0: "100",
		Volume24hToken1: "200",
		TradeCount24h:   3,
	}))

	got, err := s.Get(ctx, poolA)
	require.NoError(t, err)
	require.NotNil(t, got.Price24hAgo)
	assert.Equal(t, price, *got.Price24hAgo)

	// A refresh with no trades clears the price fields.
	require.NoError(t, s.Replace(ctx, &model.PoolStats{
		PoolID:          poolA,
		Volume24hToken0: "0",
		Volume24hToken1: "0",
	}))
	got, err = s.Get(ctx, poolA)
	require.NoError(t, err)
	assert.Nil(t, got.Price24hAgo)
	assert.Nil(t, got.PriceChange24h)
	assert.Equal(t, 0, got.TradeCount24h)
}
