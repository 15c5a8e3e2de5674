// Package redis provides a fast-read cache in front of the durable stats
// store. Postgres keeps the authoritative copy; Redis absorbs hot reads from
// the query side.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dexstream/internal/model"
	"dexstream/internal/storage"
)

// StatsCache layers a Redis copy over an inner storage.StatsStore. Replace
// writes through to the durable store first and then refreshes the cache;
// Get serves from Redis and falls back to the durable store on a miss.
type StatsCache struct {
	inner storage.StatsStore
	rdb   *redis.Client
	ttl   time.Duration
}

// NewStatsCache creates a StatsCache. ttl bounds staleness if a refresh cycle
// dies between the durable write and the cache write.
func NewStatsCache(inner storage.StatsStore, rdb *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{inner: inner, rdb: rdb, ttl: ttl}
}

var _ storage.StatsStore = (*StatsCache)(nil)

func statsKey(poolID string) string {
	return "stats:" + strings.ToLower(poolID)
}

func (c *StatsCache) Replace(ctx context.Context, stats *model.PoolStats) error {
	if err := c.inner.Replace(ctx, stats); err != nil {
		return err
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	// Best effort; the durable copy is already written.
	_ = c.rdb.Set(ctx, statsKey(stats.PoolID), payload, c.ttl).Err()
	return nil
}

func (c *StatsCache) Get(ctx context.Context, poolID string) (*model.PoolStats, error) {
	payload, err := c.rdb.Get(ctx, statsKey(poolID)).Bytes()
	if err == nil {
		var stats model.PoolStats
		if err := json.Unmarshal(payload, &stats); err == nil {
			return &stats, nil
		}
	} else if err != redis.Nil {
		return nil, fmt.Errorf("read stats cache: %w", err)
	}

	stats, err := c.inner.Get(ctx, poolID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = c.rdb.Set(ctx, statsKey(poolID), payload, c.ttl).Err()
	}
	return stats, nil
}
