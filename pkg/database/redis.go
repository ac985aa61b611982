package database

import (
	"context"
	"fmt"

	"originality-go/internal/config"
	"originality-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// NewRedis 创建 Redis 客户端并测试连接。
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
