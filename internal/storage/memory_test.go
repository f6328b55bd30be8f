package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// openStores returns every implementation so the contract tests run
// against both.
func openStores(t *testing.T) map[string]domain.KeyValueStore {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]domain.KeyValueStore{
		"memory": NewMemoryStore(log),
		"sqlite": sq,
	}
}

func TestStoreCRUD(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, domain.ErrNotFound)

			require.NoError(t, store.Set(ctx, "a", []byte(`["r1"]`)))
			got, err := store.Get(ctx, "a")
			require.NoError(t, err)
			assert.JSONEq(t, `["r1"]`, string(got))

			require.NoError(t, store.Set(ctx, "a", []byte(`["r1","r2"]`)))
			got, err = store.Get(ctx, "a")
			require.NoError(t, err)
			assert.JSONEq(t, `["r1","r2"]`, string(got))

			require.NoError(t, store.Remove(ctx, "a"))
			_, err = store.Get(ctx, "a")
			require.ErrorIs(t, err, domain.ErrNotFound)

			// Removing twice is fine.
			require.NoError(t, store.Remove(ctx, "a"))

			require.NoError(t, store.Set(ctx, "b", []byte(`1`)))
			require.NoError(t, store.Set(ctx, "c", []byte(`2`)))
			require.NoError(t, store.Clear(ctx))
			_, err = store.Get(ctx, "b")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStoreWatch(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var seen []string
			cancel := store.Watch(func(key string) { seen = append(seen, key) })

			require.NoError(t, store.Set(ctx, "k", []byte(`true`)))
			require.NoError(t, store.Remove(ctx, "k"))
			require.NoError(t, store.Remove(ctx, "k")) // absent: no event
			assert.Equal(t, []string{"k", "k"}, seen)

			cancel()
			cancel() // idempotent
			require.NoError(t, store.Set(ctx, "k", []byte(`false`)))
			assert.Len(t, seen, 2)
		})
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	in := []byte(`"abc"`)
	require.NoError(t, store.Set(ctx, "k", in))
	in[1] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got))
}

func TestSQLiteSharedFile(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	a, err := OpenSQLite(path, log)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenSQLite(path, log)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Set(ctx, "list", []byte(`["x"]`)))
	got, err := b.Get(ctx, "list")
	require.NoError(t, err)
	assert.JSONEq(t, `["x"]`, string(got))
}
