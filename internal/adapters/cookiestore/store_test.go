package cookiestore

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/evently-go/internal/ports"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "cookies.json")
	}
	return New(cfg)
}

func readRecords(t *testing.T, path string) []record {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []record
	require.NoError(t, json.Unmarshal(raw, &records))
	return records
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	store := newTestStore(t, Config{})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user_data", `{"id":"u-1","name":"Ada Lovelace"}`))

	value, err := store.Get(ctx, "user_data")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u-1","name":"Ada Lovelace"}`, value)
}

func TestStore_ValueStoredURLEncoded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := newTestStore(t, Config{Path: path})

	require.NoError(t, store.Set(context.Background(), "user_data", `{"id":"u 1"}`))

	records := readRecords(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, url.QueryEscape(`{"id":"u 1"}`), records[0].Value)
	assert.Equal(t, "/", records[0].Path)
}

func TestStore_GetFallsBackToRawValueOnBadEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	records := []record{{
		Name:    "auth_token",
		Value:   "tok%zz-not-escaped",
		Path:    "/",
		Expires: time.Now().Add(time.Hour),
	}}
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	store := newTestStore(t, Config{Path: path})
	value, err := store.Get(context.Background(), "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok%zz-not-escaped", value)
}

func TestStore_GetMissingKey(t *testing.T) {
	store := newTestStore(t, Config{})
	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_ExpiredEntryIsGone(t *testing.T) {
	current := time.Now()
	store := newTestStore(t, Config{
		TTL: time.Minute,
		Now: func() time.Time { return current },
	})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "tok-1"))

	current = current.Add(2 * time.Minute)
	_, err := store.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_ExpiredEntriesPrunedOnNextWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	current := time.Now()
	store := newTestStore(t, Config{
		Path: path,
		TTL:  time.Minute,
		Now:  func() time.Time { return current },
	})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "tok-1"))
	current = current.Add(2 * time.Minute)
	require.NoError(t, store.Set(ctx, "user_data", `{}`))

	for _, rec := range readRecords(t, path) {
		assert.NotEqual(t, "auth_token", rec.Name)
	}
}

func TestStore_DomainVariantsWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := newTestStore(t, Config{Path: path, Domain: "app.evently.io"})

	require.NoError(t, store.Set(context.Background(), "auth_token", "tok-1"))

	domains := map[string]bool{}
	for _, rec := range readRecords(t, path) {
		require.Equal(t, "auth_token", rec.Name)
		domains[rec.Domain] = true
	}
	// Host-only entry, the configured domain, and its registrable domain.
	assert.Equal(t, map[string]bool{"": true, "app.evently.io": true, "evently.io": true}, domains)
}

func TestStore_DeleteRemovesAllVariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := newTestStore(t, Config{Path: path, Domain: "app.evently.io"})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "tok-1"))
	require.NoError(t, store.Set(ctx, "user_data", `{}`))
	require.NoError(t, store.Delete(ctx, "auth_token"))

	_, err := store.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	// The other key survives.
	value, err := store.Get(ctx, "user_data")
	require.NoError(t, err)
	assert.Equal(t, `{}`, value)

	for _, rec := range readRecords(t, path) {
		assert.NotEqual(t, "auth_token", rec.Name)
	}
}

func TestStore_SetReplacesExistingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := newTestStore(t, Config{Path: path, Domain: "app.evently.io"})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "old"))
	require.NoError(t, store.Set(ctx, "auth_token", "new"))

	value, err := store.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "new", value)

	// One record set per variant, no stale duplicates.
	assert.Len(t, readRecords(t, path), 3)
}

func TestStore_DefaultTTLApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	before := time.Now()
	store := newTestStore(t, Config{Path: path})

	require.NoError(t, store.Set(context.Background(), "auth_token", "tok-1"))

	records := readRecords(t, path)
	require.Len(t, records, 1)
	assert.WithinDuration(t, before.Add(DefaultTTL), records[0].Expires, time.Minute)
}
