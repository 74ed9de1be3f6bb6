package redis

import (
	"context"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// Nil is returned by reads of a missing key.
const Nil = redis.Nil

type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Close() error
}

func CreateRedisClient(ctx context.Context, cfg *config.Config) (RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisClient(client), nil
}

// NewRedisClient wraps an already configured go-redis client.
func NewRedisClient(client *redis.Client) RedisClient {
	return &redisClientWrapper{client: client}
}

type redisClientWrapper struct {
	client *redis.Client
}

func (w *redisClientWrapper) Ping(ctx context.Context) *redis.StatusCmd {
	return w.client.Ping(ctx)
}

func (w *redisClientWrapper) Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) *redis.StatusCmd {
	if len(ttl) > 0 {
		return w.client.Set(ctx, key, value, ttl[0])
	}
	return w.client.Set(ctx, key, value, 0)
}

func (w *redisClientWrapper) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	return w.client.SetNX(ctx, key, value, ttl)
}

func (w *redisClientWrapper) Get(ctx context.Context, key string) *redis.StringCmd {
	return w.client.Get(ctx, key)
}

func (w *redisClientWrapper) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return w.client.Del(ctx, keys...)
}

func (w *redisClientWrapper) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	return w.client.Exists(ctx, keys...)
}

func (w *redisClientWrapper) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return w.client.Eval(ctx, script, keys, args...)
}

func (w *redisClientWrapper) Close() error {
	return w.client.Close()
}
