package cache

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a client for the configured server and verifies it answers.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	slog.Info("redis connected", "addr", cfg.RedisAddr)
	return rdb, nil
}
