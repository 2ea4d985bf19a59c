package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kucukaslan/activity/config"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
)

var _ domain.Deduper = &RedisDeduper{}

const RedisKeyPrefix = "activity_idempotency:"

// RedisDeduper claims client idempotency keys so a retried track request is
// accepted once.
type RedisDeduper struct {
	*redis.Client
	ttl time.Duration
}

// ConnectRedis initializes the Redis client connection
func ConnectRedis(ctx context.Context, cfg *config.RedisConfig) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       0, // default DB
	})

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info().Str("addr", cfg.GetRedisAddr()).Msg("Redis connection established")
	return NewRedisDeduper(client, cfg.IdempotencyTTL), nil
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisDeduper{Client: client, ttl: ttl}
}

// Claim reports true when key was not seen within the TTL.
func (r *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.SetNX(ctx, RedisKeyPrefix+key, "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release gives a key back after the event it guarded could not be accepted.
func (r *RedisDeduper) Release(ctx context.Context, key string) error {
	return r.Del(ctx, RedisKeyPrefix+key).Err()
}

func (r *RedisDeduper) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("Redis connection is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

func (r *RedisDeduper) Close() error {
	if err := r.Client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	logging.Info().Msg("Redis connection closed")
	return nil
}
