package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/reactions/internal/core/kv"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_SetGetDelete(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "one"))
	first, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "one", first.Value)

	require.NoError(t, store.Set(ctx, "k", "two"))
	second, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", second.Value)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

	require.NoError(t, store.Delete(ctx, "k"))
	assert.ErrorIs(t, store.Delete(ctx, "k"), kv.ErrKeyNotFound)
}

func TestStore_SurvivesReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "animated-reactions-sender-id", "sender_x_y"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	entry, err := reopened.Get(ctx, "animated-reactions-sender-id")
	require.NoError(t, err)
	assert.Equal(t, "sender_x_y", entry.Value)
}
