package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTestRedisAddr is the address probed when TEST_REDIS_ADDR is unset.
const DefaultTestRedisAddr = "localhost:6379"

// SetupTestRedis creates a Redis client for testing. Tests are skipped if
// Redis is not available, unless TEST_REQUIRE_REDIS=true makes absence a
// failure (CI).
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = DefaultTestRedisAddr
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   selectTestRedisDB(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		if requireRedis() {
			t.Fatalf("Redis not available for testing at %s: %v", addr, err)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	// Clean up any existing test data
	client.FlushDB(ctx)

	return client
}

func selectTestRedisDB() int {
	raw := os.Getenv("TEST_REDIS_DB")
	if raw == "" {
		return 15
	}
	db, err := strconv.Atoi(raw)
	if err != nil {
		return 15
	}
	return db
}

func requireRedis() bool {
	return os.Getenv("TEST_REQUIRE_REDIS") == "true"
}

// Common pointer helper functions for tests.

// StringPtr returns a pointer to the given string value.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to the given bool value.
func BoolPtr(b bool) *bool { return &b }
