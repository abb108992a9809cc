package redis

// Package redis provides a Redis-backed expiring store, selectable as the
// cookie-like backend where credentials should be shared across processes
// on the same device. TTL semantics are handled natively by Redis.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evently/evently-go/internal/ports"
)

// DefaultPrefix namespaces this client's keys in a shared Redis.
const DefaultPrefix = "evently:credentials:"

// ExpiringStore is a Redis-based BackingStore with a fixed per-write TTL.
type ExpiringStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewExpiringStore creates a Redis-backed store with the default prefix.
func NewExpiringStore(client redis.UniversalClient, ttl time.Duration) *ExpiringStore {
	return NewExpiringStoreWithPrefix(client, ttl, DefaultPrefix)
}

// NewExpiringStoreWithPrefix creates a Redis-backed store with a custom key
// prefix.
func NewExpiringStoreWithPrefix(client redis.UniversalClient, ttl time.Duration, prefix string) *ExpiringStore {
	return &ExpiringStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *ExpiringStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if s.ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *ExpiringStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ports.ErrNotFound
	}
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

func (s *ExpiringStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
