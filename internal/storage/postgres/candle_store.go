package postgres

import (
	"context"
	"fmt"
	"time"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// CandleStore implements storage.CandleStore using PostgreSQL. The fold into
// a bucket happens in a single upsert statement, so concurrent trades cannot
// lose updates.
type CandleStore struct {
	pool *Pool
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(pool *Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

var _ storage.CandleStore = (*CandleStore)(nil)

func (s *CandleStore) ApplyTrade(ctx context.Context, poolID string, tf model.Timeframe, openTime time.Time, price, volume0, volume1 string) (*model.Candle, error) {
	if poolID == "" || tf.Seconds() == 0 {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO candles (
			pool_id, timeframe, open_time, open, high, low, close, volume0, volume1, trade_count
		) VALUES ($1, $2, $3, $4::numeric, $4::numeric, $4::numeric, $4::numeric, $5::numeric, $6::numeric, 1)
		ON CONFLICT (pool_id, timeframe, open_time) DO UPDATE SET
			high = GREATEST(candles.high, EXCLUDED.high),
			low = LEAST(candles.low, EXCLUDED.low),
			close = EXCLUDED.close,
			volume0 = candles.volume0 + EXCLUDED.volume0,
			volume1 = candles.volume1 + EXCLUDED.volume1,
			trade_count = candles.trade_count + 1
		RETURNING pool_id, timeframe, open_time, open::text, high::text, low::text,
			close::text, volume0::text, volume1::text, trade_count
	`, poolID, string(tf), openTime.UTC(), price, volume0, volume1)

	candle, err := scanCandle(row)
	if err != nil {
		return nil, fmt.Errorf("apply trade to candle: %w", err)
	}
	return candle, nil
}

func (s *CandleStore) GetRange(ctx context.Context, poolID string, tf model.Timeframe, from, to time.Time) ([]*model.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, timeframe, open_time, open::text, high::text, low::text,
			close::text, volume0::text, volume1::text, trade_count
		FROM candles
		WHERE lower(pool_id) = lower($1) AND timeframe = $2
			AND open_time >= $3 AND open_time <= $4
		ORDER BY open_time ASC
	`, poolID, string(tf), from, to)
	if err != nil {
		return nil, fmt.Errorf("get candle range: %w", err)
	}
	defer rows.Close()

	var candles []*model.Candle
	for rows.Next() {
		candle, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, candle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}
	return candles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandle(row rowScanner) (*model.Candle, error) {
	var candle model.Candle
	var tf string
	err := row.Scan(
		&candle.PoolID, &tf, &candle.OpenTime, &candle.Open, &candle.High,
		&candle.Low, &candle.Close, &candle.Volume0, &candle.Volume1, &candle.TradeCount,
	)
	if err != nil {
		return nil, err
	}
	candle.Timeframe = model.Timeframe(tf)
	return &candle, nil
}
