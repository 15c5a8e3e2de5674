package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"dexstream/internal/dex"
	"dexstream/internal/model"
	"dexstream/internal/observability"
	"dexstream/internal/storage"
)

// CursorSource is the event source key under which pool cursors are
// persisted.
const CursorSource = "pool_manager"

// State describes where a runner is in its lifecycle.
type State string

const (
	StateBackfill State = "backfill"
	StatePolling  State = "polling"
	StateStopped  State = "stopped"
)

// ChainSource is the subset of the chain client the runner needs.
// Tests substitute a fake.
type ChainSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error)
}

// RunConfig holds runtime settings shared by every pool runner.
type RunConfig struct {
	PoolManager  common.Address
	BatchSize    uint64
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner indexes one pool: it backfills from the last persisted cursor
// to the chain head, then polls for new blocks until stopped.
type Runner struct {
	cfg       RunConfig
	pool      *model.Pool
	decimals0 int
	decimals1 int

	chain   ChainSource
	decoder *dex.Decoder
	handler *Handler
	cursors storage.CursorStore
	metrics *observability.Metrics
	logger  *zap.Logger

	mu         sync.Mutex
	state      State
	lastSynced uint64
	synced     bool
}

// NewRunner builds a Runner for one pool. decimals0 and decimals1 are
// the pool's token decimals, used for price conversion.
func NewRunner(
	cfg RunConfig,
	pool *model.Pool,
	decimals0, decimals1 int,
	chainSource ChainSource,
	decoder *dex.Decoder,
	handler *Handler,
	cursors storage.CursorStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		pool:      pool,
		decimals0: decimals0,
		decimals1: decimals1,
		chain:     chainSource,
		decoder:   decoder,
		handler:   handler,
		cursors:   cursors,
		metrics:   metrics,
		logger:    logger.With(zap.String("pool", pool.PoolID)),
		state:     StateBackfill,
	}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastSyncedBlock returns the highest block whose logs have been
// processed and persisted.
func (r *Runner) LastSyncedBlock() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSynced
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) setLastSynced(block uint64) {
	r.mu.Lock()
	r.lastSynced = block
	r.synced = true
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.CursorBlock.WithLabelValues(r.pool.PoolID).Set(float64(block))
	}
}

// nextBlock returns the first block that still needs processing: the
// pool's init block until a batch has been persisted, then one past
// the last synced block.
func (r *Runner) nextBlock() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.synced || r.lastSynced+1 < r.pool.InitBlock {
		return r.pool.InitBlock
	}
	return r.lastSynced + 1
}

// Run executes the indexing loop until ctx is cancelled. A backfill
// failure is logged and the runner proceeds to polling; the poll loop
// re-covers the missed range because the cursor only advances past
// fully processed batches.
func (r *Runner) Run(ctx context.Context) error {
	defer r.setState(StateStopped)

	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	block, found, err := r.cursors.Get(ctx, r.pool.PoolID, CursorSource)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if found {
		r.setLastSynced(block)
		r.logger.Info("resume from cursor", zap.Uint64("last_synced", block))
	}
	from := r.nextBlock()

	latest, err := r.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	r.setState(StateBackfill)
	if from <= latest {
		if err := r.backfill(ctx, from, latest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("backfill incomplete, continuing with polling", zap.Error(err))
		}
	}

	r.setState(StatePolling)
	return r.poll(ctx)
}

func (r *Runner) backfill(ctx context.Context, from, to uint64) error {
	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	r.logger.Info("backfill starting",
		zap.Uint64("from", from), zap.Uint64("to", to), zap.Int("batches", len(ranges)))

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.processRange(ctx, blockRange.From, blockRange.To); err != nil {
			return fmt.Errorf("process range %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		if r.metrics != nil {
			r.metrics.BackfillBatches.Inc()
		}
	}

	r.logger.Info("backfill complete", zap.Uint64("to", to))
	return nil
}

// poll advances the cursor to the chain head on every tick. Errors are
// logged and retried on the next tick.
func (r *Runner) poll(ctx context.Context) error {
	interval := r.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Warn("poll latest block failed", zap.Error(err))
			continue
		}

		next := r.nextBlock()
		if r.metrics != nil && latest+1 >= next {
			r.metrics.BlocksBehind.WithLabelValues(r.pool.PoolID).Set(float64(latest + 1 - next))
		}
		if next > latest {
			continue
		}

		ranges, err := SplitRange(next, latest, r.cfg.BatchSize)
		if err != nil {
			r.logger.Warn("poll split range failed", zap.Error(err))
			continue
		}
		for _, blockRange := range ranges {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := r.processRange(ctx, blockRange.From, blockRange.To); err != nil {
				r.logger.Warn("poll batch failed",
					zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
				break
			}
		}
	}
}

// processRange fetches, decodes and handles every log in the inclusive
// range, then persists the cursor at the range end.
func (r *Runner) processRange(ctx context.Context, from, to uint64) error {
	logs, err := r.filterLogsWithRetry(ctx, from, to)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	for _, log := range logs {
		if err := r.handleLog(ctx, log); err != nil {
			return err
		}
	}

	if err := r.cursors.Set(ctx, r.pool.PoolID, CursorSource, to); err != nil {
		return fmt.Errorf("persist cursor: %w", err)
	}
	r.setLastSynced(to)

	if len(logs) > 0 {
		r.logger.Debug("batch complete",
			zap.Int("logs", len(logs)), zap.Uint64("from", from), zap.Uint64("to", to))
	}
	return nil
}

func (r *Runner) handleLog(ctx context.Context, log types.Log) error {
	name, ok := r.decoder.EventName(log)
	if !ok {
		return nil
	}

	ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
	if err != nil {
		return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
	}
	blockTime := time.Unix(int64(ts), 0).UTC()

	switch name {
	case dex.EventSwap:
		ev, err := r.decoder.DecodeSwap(log, blockTime)
		if err != nil {
			if r.metrics != nil {
				r.metrics.EventProcessingErrors.WithLabelValues("swap").Inc()
			}
			r.logger.Warn("undecodable swap log",
				zap.Error(err), zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
			return nil
		}
		if err := r.handler.HandleSwap(ctx, ev, r.decimals0, r.decimals1); err != nil {
			if r.metrics != nil {
				r.metrics.EventProcessingErrors.WithLabelValues("swap").Inc()
			}
			return err
		}
	case dex.EventModifyLiquidity:
		ev, err := r.decoder.DecodeModifyLiquidity(log, blockTime)
		if err != nil {
			if r.metrics != nil {
				r.metrics.EventProcessingErrors.WithLabelValues("liquidity").Inc()
			}
			r.logger.Warn("undecodable liquidity log",
				zap.Error(err), zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index))
			return nil
		}
		if err := r.handler.HandleLiquidity(ctx, ev); err != nil {
			if r.metrics != nil {
				r.metrics.EventProcessingErrors.WithLabelValues("liquidity").Inc()
			}
			return err
		}
	}
	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	addresses := []common.Address{r.cfg.PoolManager}
	topics := [][]common.Hash{
		{r.decoder.SwapTopic(), r.decoder.ModifyLiquidityTopic()},
		{common.HexToHash(r.pool.PoolID)},
	}

	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		start := time.Now()
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, topics)
		if r.metrics != nil {
			r.metrics.RPCCallLatency.WithLabelValues("eth_getLogs").Observe(time.Since(start).Seconds())
		}
		if err != nil {
			r.logger.Warn("filter logs failed",
				zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		start := time.Now()
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if r.metrics != nil {
			r.metrics.RPCCallLatency.WithLabelValues("eth_getBlockByNumber").Observe(time.Since(start).Seconds())
		}
		if err != nil {
			r.logger.Warn("block timestamp fetch failed",
				zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}
