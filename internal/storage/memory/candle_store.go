package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dexstream/internal/model"
	"dexstream/internal/pricing"
	"dexstream/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore. The
// store mutex serializes every read-modify-write, so concurrent trades
// landing in the same bucket cannot lose updates.
type CandleStore struct {
	mu   sync.Mutex
	data map[string]*model.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{data: make(map[string]*model.Candle)}
}

var _ storage.CandleStore = (*CandleStore)(nil)

func candleKey(poolID string, tf model.Timeframe, openTime time.Time) string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(poolID), tf, openTime.Unix())
}

func (s *CandleStore) ApplyTrade(_ context.Context, poolID string, tf model.Timeframe, openTime time.Time, price, volume0, volume1 string) (*model.Candle, error) {
	if poolID == "" || tf.Seconds() == 0 {
		return nil, storage.ErrInvalidInput
	}

	key := candleKey(poolID, tf, openTime)

	s.mu.Lock()
	defer s.mu.Unlock()

	candle, ok := s.data[key]
	if !ok {
		candle = &model.Candle{
			PoolID:     poolID,
			Timeframe:  tf,
			OpenTime:   openTime.UTC(),
			Open:       price,
			High:       price,
			Low:        price,
			Close:      price,
			Volume0:    volume0,
			Volume1:    volume1,
			TradeCount: 1,
		}
		s.data[key] = candle
		cp := *candle
		return &cp, nil
	}

	if pricing.CompareDecimal(price, candle.High) > 0 {
		candle.High = price
	}
	if pricing.CompareDecimal(price, candle.Low) < 0 {
		candle.Low = price
	}
	candle.Close = price

	v0, err := pricing.AddBigStrings(candle.Volume0, volume0)
	if err != nil {
		return nil, err
	}
	v1, err := pricing.AddBigStrings(candle.Volume1, volume1)
	if err != nil {
		return nil, err
	}
	candle.Volume0 = v0
	candle.Volume1 = v1
	candle.TradeCount++

	cp := *candle
	return &cp, nil
}

func (s *CandleStore) GetRange(_ context.Context, poolID string, tf model.Timeframe, from, to time.Time) ([]*model.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*model.Candle
	for _, candle := range s.data {
		if !strings.EqualFold(candle.PoolID, poolID) || candle.Timeframe != tf {
			continue
		}
		if candle.OpenTime.Before(from) || candle.OpenTime.After(to) {
			continue
		}
		cp := *candle
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenTime.Before(result[j].OpenTime)
	})
	return result, nil
}
