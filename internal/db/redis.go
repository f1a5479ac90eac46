package db

import (
	"context"
	"log"
	"time"

	"github.com/AutoMind-2527/Backend/internal/config"

	"github.com/redis/go-redis/v9"
)

var pingRedisFn = func(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// ConnectRedis returns nil when no address is configured or the server does
// not answer. Without redis the stream hub stays local and vehicle locks
// fall back to the in-process lock.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pingRedisFn(ctx, client); err != nil {
		log.Printf("redis %s unreachable, running without it: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return nil
	}
	return client
}
