package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dexstream/internal/broker"
	"dexstream/internal/candle"
	"dexstream/internal/chain"
	"dexstream/internal/config"
	"dexstream/internal/dex"
	"dexstream/internal/indexer"
	"dexstream/internal/model"
	"dexstream/internal/observability"
	"dexstream/internal/stats"
	"dexstream/internal/storage"
	"dexstream/internal/storage/postgres"
	redisstore "dexstream/internal/storage/redis"
	"dexstream/internal/ws"
)

func main() {
	root := &cobra.Command{
		Use:          "relayer",
		Short:        "DEX pool event relayer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the relayer",
		RunE:  runRelayer,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	runCmd.Flags().String("pool-manager", "", "PoolManager contract address")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	runCmd.Flags().String("redis-addr", "", "Redis address, empty disables the stats cache")
	runCmd.Flags().String("redis-password", "", "Redis password")
	runCmd.Flags().Int("redis-db", 0, "Redis database")
	runCmd.Flags().Duration("stats-cache-ttl", 5*time.Minute, "stats cache entry TTL")
	runCmd.Flags().String("listen-addr", ":8080", "HTTP listen address")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per backfill batch")
	runCmd.Flags().Duration("poll-interval", 5*time.Second, "head polling interval")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("stats-interval", time.Minute, "24h stats refresh interval")
	runCmd.Flags().String("seed-file", "", "optional JSON file of tokens and pools applied before start")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed pools and tokens from a JSON file",
		RunE:  runSeed,
	}

	seedCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	seedCmd.Flags().String("seed-file", "", "JSON file with tokens and pools")
	seedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(seedCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRelayer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.PoolManager) {
		return fmt.Errorf("invalid pool manager address: %s", cfg.PoolManager)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if err := postgres.EnsureSchema(ctx, pg); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	tokens := postgres.NewTokenStore(pg)
	pools := postgres.NewPoolStore(pg)

	if cfg.SeedFile != "" {
		if err := applySeed(ctx, cfg.SeedFile, tokens, pools, logger); err != nil {
			return err
		}
	}

	swaps := postgres.NewSwapStore(pg)
	liquidity := postgres.NewLiquidityEventStore(pg)
	candles := postgres.NewCandleStore(pg)
	cursors := postgres.NewCursorStore(pg)

	var statsStore storage.StatsStore = postgres.NewStatsStore(pg)
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		statsStore = redisstore.NewStatsCache(statsStore, rdb, cfg.StatsCacheTTL)
		logger.Info("stats cache enabled", zap.String("redis", cfg.RedisAddr))
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	decoder, err := dex.NewDecoder()
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	metrics := observability.NewMetrics(nil)
	hub := broker.New(logger)

	candleAgg := candle.NewAggregator(candles, hub, logger)
	handler := indexer.NewHandler(swaps, liquidity, pools, candleAgg, hub, metrics, logger)

	registry := indexer.NewRegistry(indexer.RunConfig{
		PoolManager:  common.HexToAddress(cfg.PoolManager),
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, decoder, handler, pools, tokens, cursors, metrics, logger)

	logger.Info("relayer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("pool_manager", cfg.PoolManager),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("listen_addr", cfg.ListenAddr),
	)

	if err := registry.StartAll(ctx); err != nil {
		return fmt.Errorf("start indexers: %w", err)
	}
	defer registry.StopAll()

	statsAgg := stats.NewAggregator(swaps, pools, statsStore, metrics, logger)
	if err := statsAgg.RefreshAll(ctx); err != nil {
		logger.Warn("initial stats refresh failed", zap.Error(err))
	}
	go func() {
		_ = statsAgg.Run(ctx, cfg.StatsInterval)
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(hub, logger))
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", healthHandler(registry))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	return nil
}

func healthHandler(registry *indexer.Registry) http.HandlerFunc {
	type poolHealth struct {
		PoolID          string `json:"pool_id"`
		State           string `json:"state"`
		LastSyncedBlock uint64 `json:"last_synced_block"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		pools := registry.RunningPools()
		out := struct {
			Status string       `json:"status"`
			Pools  []poolHealth `json:"pools"`
		}{Status: "ok", Pools: make([]poolHealth, 0, len(pools))}

		for _, id := range pools {
			runner, ok := registry.Runner(id)
			if !ok {
				continue
			}
			out.Pools = append(out.Pools, poolHealth{
				PoolID:          id,
				State:           string(runner.State()),
				LastSyncedBlock: runner.LastSyncedBlock(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

type seedFile struct {
	Tokens []*seedToken `json:"tokens"`
	Pools  []*seedPool  `json:"pools"`
}

type seedToken struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	ImageURL string `json:"image_url"`
}

type seedPool struct {
	PoolID        string `json:"pool_id"`
	Token0Address string `json:"token0_address"`
	Token1Address string `json:"token1_address"`
	Fee           uint32 `json:"fee"`
	TickSpacing   int32  `json:"tick_spacing"`
	HookAddress   string `json:"hook_address"`
	InitBlock     uint64 `json:"init_block"`
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	if cfg.SeedFile == "" {
		return fmt.Errorf("seed file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if err := postgres.EnsureSchema(ctx, pg); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return applySeed(ctx, cfg.SeedFile, postgres.NewTokenStore(pg), postgres.NewPoolStore(pg), logger)
}

func applySeed(ctx context.Context, path string, tokens storage.TokenStore, pools storage.PoolStore, logger *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, t := range seed.Tokens {
		if err := tokens.Upsert(ctx, tokenModel(t)); err != nil {
			return fmt.Errorf("seed token %s: %w", t.Address, err)
		}
	}
	for _, p := range seed.Pools {
		if err := pools.Upsert(ctx, poolModel(p)); err != nil {
			return fmt.Errorf("seed pool %s: %w", p.PoolID, err)
		}
	}

	logger.Info("seed complete",
		zap.Int("tokens", len(seed.Tokens)), zap.Int("pools", len(seed.Pools)))
	return nil
}

func tokenModel(t *seedToken) *model.Token {
	return &model.Token{
		Address:  t.Address,
		Name:     t.Name,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
		ImageURL: t.ImageURL,
	}
}

func poolModel(p *seedPool) *model.Pool {
	return &model.Pool{
		PoolID:        p.PoolID,
		Token0Address: p.Token0Address,
		Token1Address: p.Token1Address,
		Fee:           p.Fee,
		TickSpacing:   p.TickSpacing,
		HookAddress:   p.HookAddress,
		IsActive:      true,
		InitBlock:     p.InitBlock,
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
