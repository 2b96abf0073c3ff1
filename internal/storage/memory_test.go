package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, record("u1", 1, 1, 0)))

	list, err := store.GetAll(ctx)
	require.NoError(t, err)
	list[0].Latitude = 89

	again, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Latitude)
}

func TestMemoryStore_SortedByEntity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Put(ctx, record(id, 0, 0, 0)))
	}

	list, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].EntityID)
	assert.Equal(t, "b", list[1].EntityID)
	assert.Equal(t, "c", list[2].EntityID)
}
