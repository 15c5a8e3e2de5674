package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"dexstream/internal/dex"
	"dexstream/internal/observability"
	"dexstream/internal/storage"
)

// Registry owns one Runner per active pool and manages their
// lifecycles.
type Registry struct {
	cfg     RunConfig
	chain   ChainSource
	decoder *dex.Decoder
	handler *Handler
	pools   storage.PoolStore
	tokens  storage.TokenStore
	cursors storage.CursorStore
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	running map[string]*runnerEntry
}

type runnerEntry struct {
	runner *Runner
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistry(
	cfg RunConfig,
	chainSource ChainSource,
	decoder *dex.Decoder,
	handler *Handler,
	pools storage.PoolStore,
	tokens storage.TokenStore,
	cursors storage.CursorStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:     cfg,
		chain:   chainSource,
		decoder: decoder,
		handler: handler,
		pools:   pools,
		tokens:  tokens,
		cursors: cursors,
		metrics: metrics,
		logger:  logger,
		running: make(map[string]*runnerEntry),
	}
}

// StartForPool launches an indexer loop for the pool. Starting a pool
// that is already running is a no-op.
func (reg *Registry) StartForPool(ctx context.Context, poolID string) error {
	pool, err := reg.pools.GetByID(ctx, poolID)
	if err != nil {
		return fmt.Errorf("load pool %s: %w", poolID, err)
	}

	token0, err := reg.tokens.GetByAddress(ctx, pool.Token0Address)
	if err != nil {
		return fmt.Errorf("load token0 %s: %w", pool.Token0Address, err)
	}
	token1, err := reg.tokens.GetByAddress(ctx, pool.Token1Address)
	if err != nil {
		return fmt.Errorf("load token1 %s: %w", pool.Token1Address, err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.running[pool.PoolID]; ok {
		return nil
	}

	runner := NewRunner(reg.cfg, pool, token0.Decimals, token1.Decimals,
		reg.chain, reg.decoder, reg.handler, reg.cursors, reg.metrics, reg.logger)

	runCtx, cancel := context.WithCancel(ctx)
	entry := &runnerEntry{runner: runner, cancel: cancel, done: make(chan struct{})}
	reg.running[pool.PoolID] = entry
	if reg.metrics != nil {
		reg.metrics.ActiveIndexers.Inc()
	}

	go func() {
		defer close(entry.done)
		err := runner.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			reg.logger.Error("indexer stopped", zap.String("pool", pool.PoolID), zap.Error(err))
		}

		reg.mu.Lock()
		delete(reg.running, pool.PoolID)
		reg.mu.Unlock()
		if reg.metrics != nil {
			reg.metrics.ActiveIndexers.Dec()
		}
	}()

	reg.logger.Info("indexer started", zap.String("pool", pool.PoolID))
	return nil
}

// StopForPool cancels the pool's runner and waits for it to exit.
// Stopping a pool that is not running is a no-op.
func (reg *Registry) StopForPool(poolID string) {
	reg.mu.Lock()
	entry, ok := reg.running[poolID]
	reg.mu.Unlock()
	if !ok {
		return
	}
	entry.cancel()
	<-entry.done
}

// StartAll launches an indexer for every active pool. A pool that
// fails to start is logged and skipped; the remaining pools still
// start.
func (reg *Registry) StartAll(ctx context.Context) error {
	pools, err := reg.pools.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active pools: %w", err)
	}
	for _, pool := range pools {
		if err := reg.StartForPool(ctx, pool.PoolID); err != nil {
			if reg.metrics != nil {
				reg.metrics.IndexerStartFailures.Inc()
			}
			reg.logger.Error("indexer start failed, skipping pool",
				zap.String("pool", pool.PoolID), zap.Error(err))
		}
	}
	return nil
}

// StopAll cancels every runner and waits for all of them to exit.
func (reg *Registry) StopAll() {
	reg.mu.Lock()
	entries := make([]*runnerEntry, 0, len(reg.running))
	for _, entry := range reg.running {
		entries = append(entries, entry)
	}
	reg.mu.Unlock()

	for _, entry := range entries {
		entry.cancel()
	}
	for _, entry := range entries {
		<-entry.done
	}
}

// Runner returns the live runner for a pool, if one is running.
func (reg *Registry) Runner(poolID string) (*Runner, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	entry, ok := reg.running[poolID]
	if !ok {
		return nil, false
	}
	return entry.runner, true
}

// RunningPools returns the pool ids with a live indexer.
func (reg *Registry) RunningPools() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]string, 0, len(reg.running))
	for id := range reg.running {
		out = append(out, id)
	}
	return out
}
