package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/evently-go/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "store", "credentials.json"))
}

func TestStore_SetGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "tok-1"))

	value, err := store.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", value)
}

func TestStore_GetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_SetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "old"))
	require.NoError(t, store.Set(ctx, "auth_token", "new"))

	value, err := store.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth_token", "tok-1"))
	require.NoError(t, store.Delete(ctx, "auth_token"))

	_, err := store.Get(ctx, "auth_token")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_DeleteMissingKeyIsNoOp(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "absent"))
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()

	require.NoError(t, New(path).Set(ctx, "user_data", `{"id":"u-1"}`))

	value, err := New(path).Get(ctx, "user_data")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u-1"}`, value)
}

func TestStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, New(path).Set(context.Background(), "auth_token", "tok-1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_CorruptFileSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Get(context.Background(), "auth_token")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Set(ctx, "auth_token", "tok-1"))
	_, err := store.Get(ctx, "auth_token")
	assert.Error(t, err)
}
