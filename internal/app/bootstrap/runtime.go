package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/banyan-booking/internal/config"
	"github.com/wolfman30/banyan-booking/internal/credits"
	"github.com/wolfman30/banyan-booking/internal/kv"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStore returns the Redis key-value store, or an in-process one when
// Redis is not configured.
func BuildStore(redisClient *redis.Client, logger *logging.Logger) kv.Store {
	if redisClient == nil {
		logging.OrDefault(logger).Warn("redis not configured; practice data is kept in memory")
		return kv.NewMemoryStore()
	}
	return kv.NewRedisStore(redisClient, logger)
}

// ConnectPostgresPool returns nil for an empty URL or an unreachable server.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	logger = logging.OrDefault(logger)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(pingCtx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildLedger uses Postgres when a pool is available.
func BuildLedger(pool *pgxpool.Pool, logger *logging.Logger) credits.Ledger {
	if pool == nil {
		logging.OrDefault(logger).Warn("database not configured; session credits are kept in memory")
		return credits.NewMemoryLedger()
	}
	return credits.NewPostgresLedger(pool)
}
