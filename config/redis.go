package config

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the redis holding page sessions.
func NewRedisClient(cfg SessionConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func PingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
