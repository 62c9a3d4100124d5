package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token under Key in a Redis database, for headless
// setups where several shutter processes share one login.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects lazily to the server described by a redis:// URL.
func NewRedisStore(rawURL string) (*RedisStore, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("redis url is required for the redis token store")
	}
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, Key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

func (r *RedisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		if err := r.client.Del(ctx, Key).Err(); err != nil {
			return fmt.Errorf("redis delete token: %w", err)
		}
		return nil
	}
	if err := r.client.Set(ctx, Key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
