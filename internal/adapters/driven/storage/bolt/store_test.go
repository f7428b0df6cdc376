package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStore_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, StateFile), store.Path())
	assert.FileExists(t, store.Path())
}

func TestStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Get(driven.KeySessions)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SetGetDelete(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Set(driven.KeyCurrentSession, []byte("abc")))
	v, err := store.Get(driven.KeyCurrentSession)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)

	require.NoError(t, store.Delete(driven.KeyCurrentSession))
	_, err = store.Get(driven.KeyCurrentSession)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is fine.
	assert.NoError(t, store.Delete(driven.KeyCurrentSession))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(driven.KeyEmbeddingAPIKey, []byte("secret")))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	v, err := store.Get(driven.KeyEmbeddingAPIKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), v)
}

func TestStore_Subscribe(t *testing.T) {
	store := setupTestStore(t)

	var seen []string
	unsubscribe := store.Subscribe(driven.KeyEmbeddingAPIKey, func(v []byte) {
		if v == nil {
			seen = append(seen, "<deleted>")
			return
		}
		seen = append(seen, string(v))
	})

	require.NoError(t, store.Set(driven.KeyEmbeddingAPIKey, []byte("k1")))
	require.NoError(t, store.Set(driven.KeyAuthToken, []byte("ignored")))
	require.NoError(t, store.Delete(driven.KeyEmbeddingAPIKey))
	unsubscribe()
	require.NoError(t, store.Set(driven.KeyEmbeddingAPIKey, []byte("k2")))

	assert.Equal(t, []string{"k1", "<deleted>"}, seen)
}
