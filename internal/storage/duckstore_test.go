package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDuckStore(t *testing.T) *DuckStore {
	t.Helper()
	store, err := NewDuckStore(filepath.Join(t.TempDir(), "positions.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDuckStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return newTestDuckStore(t)
	})
}

func TestDuckStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "positions.duckdb")

	store, err := NewDuckStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, record("u1", 12.9, 77.6, 0)))
	require.NoError(t, store.Close())

	reopened, err := NewDuckStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].EntityID)
	assert.True(t, list[0].ObservedAt.Equal(baseTime))
}

func TestDuckStore_ClosedReportsUnavailable(t *testing.T) {
	ctx := context.Background()
	store, err := NewDuckStore(filepath.Join(t.TempDir(), "positions.duckdb"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Put(ctx, record("u1", 1, 1, 0))
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = store.GetAll(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDuckStore_PutGivesUpBehindSlowWrite(t *testing.T) {
	store := newTestDuckStore(t)

	// Occupy the write path as an in-flight write would.
	store.writeSlot <- struct{}{}
	defer func() { <-store.writeSlot }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := store.Put(ctx, record("u1", 1, 1, 0))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)

	list, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
