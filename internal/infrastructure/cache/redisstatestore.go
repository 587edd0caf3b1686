// Package cache implements the short-lived state store on Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	sharedconfig "blocklotto/internal/shared/config"
)

// RedisStateStore keeps TTL-bounded state in Redis.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore connects to Redis and verifies the connection.
func NewRedisStateStore(cfg *sharedconfig.RedisConfig) (*RedisStateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStateStore{client: client}, nil
}

// StoreState writes value under key with the given TTL.
func (s *RedisStateStore) StoreState(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("storing state: %w", err)
	}
	return nil
}

// GetState reads a key, returning "" when absent or expired.
func (s *RedisStateStore) GetState(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("reading state: %w", err)
	}
	return value, nil
}

// ConsumeState reads and deletes a key atomically via GETDEL.
func (s *RedisStateStore) ConsumeState(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("consuming state: %w", err)
	}
	return value, nil
}

// DeleteState removes a key. Deleting an absent key is not an error.
func (s *RedisStateStore) DeleteState(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting state: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
