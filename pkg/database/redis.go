package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"prima-facie-go/pkg/log"
)

// OpenRedis 初始化 Redis 客户端连接. An empty addr disables the cache and returns nil.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		log.Info("redis address not configured, settings cache disabled")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Redis client connected successfully")
	return rdb, nil
}
