package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"codstore.dev/storefront/pkg/global"
)

func RedisClient(cfg global.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
		Protocol: 2,
	})
}

// Pinger reports Redis reachability for health checks.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
