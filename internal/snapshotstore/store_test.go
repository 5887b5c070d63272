package snapshotstore_test

import (
	"context"
	"testing"

	"github.com/smilemakc/ta-engine/internal/evaluator"
	"github.com/smilemakc/ta-engine/internal/snapshotstore"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveLoadRoundTrip(t *testing.T) {
	store := snapshotstore.NewMemoryStore()
	ctx := context.Background()

	snap := &evaluator.Snapshot{
		SchemaVersion: 1,
		LastTS:        map[string]int64{"BTC/1h/ohlcv/close": 100},
	}

	require.NoError(t, store.Save(ctx, "session-1", snap))

	got, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.SchemaVersion)
	require.Equal(t, int64(100), got.LastTS["BTC/1h/ohlcv/close"])
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := snapshotstore.NewMemoryStore()
	_, err := store.Load(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, snapshotstore.ErrNotFound)
}

func TestMemoryStoreDeleteAndList(t *testing.T) {
	store := snapshotstore.NewMemoryStore()
	ctx := context.Background()
	snap := &evaluator.Snapshot{SchemaVersion: 1}

	require.NoError(t, store.Save(ctx, "a", snap))
	require.NoError(t, store.Save(ctx, "b", snap))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	ids, err = store.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b"}, ids)
}
