package errorlog

import (
	"context"
	"fmt"
	"time"

	"github.com/phambaophuc/image-webhook/internal/config"
	"github.com/redis/go-redis/v9"
)

const RedisKeyPrefix = "errorlog:"

// RedisSink mirrors each entry to Redis as a plain string key without expiry,
// so the latest message survives a process restart.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(cfg config.RedisConfig) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	return &RedisSink{client: client}
}

func (r *RedisSink) Record(ctx context.Context, key, message string) error {
	if err := r.client.Set(ctx, RedisKeyPrefix+key, message, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisSink) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
