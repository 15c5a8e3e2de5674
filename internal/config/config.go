// Package config loads runtime settings from flags, environment
// variables and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL      string
	PoolManager string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	ListenAddr string

	BatchSize    uint64
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	StatsInterval time.Duration

	SeedFile string

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEXSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("poll-interval", 5*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("stats-interval", time.Minute)
	v.SetDefault("stats-cache-ttl", 5*time.Minute)
	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:        v.GetString("rpc"),
		PoolManager:   v.GetString("pool-manager"),
		DatabaseDSN:   v.GetString("pg-dsn"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		StatsCacheTTL: v.GetDuration("stats-cache-ttl"),
		ListenAddr:    v.GetString("listen-addr"),
		BatchSize:     v.GetUint64("batch-size"),
		PollInterval:  v.GetDuration("poll-interval"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		StatsInterval: v.GetDuration("stats-interval"),
		SeedFile:      v.GetString("seed-file"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the run command cannot operate without.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.PoolManager == "" {
		return fmt.Errorf("pool manager address is required")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	return nil
}
