package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/location-tracker/backend/internal/models"
)

// MemoryStore implements Store with a map guarded by a RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[string]models.PositionRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]models.PositionRecord),
	}
}

// Put replaces the record for rec.EntityID.
func (s *MemoryStore) Put(ctx context.Context, rec models.PositionRecord) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put position", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[rec.EntityID] = rec

	return nil
}

// GetAll returns a copy of every stored record, sorted by entity ID.
func (s *MemoryStore) GetAll(ctx context.Context) ([]models.PositionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list positions", err)
	}

	s.mu.RLock()
	list := make([]models.PositionRecord, 0, len(s.positions))
	for _, rec := range s.positions {
		list = append(list, rec)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].EntityID < list[j].EntityID
	})

	return list, nil
}

// Name returns the backend name.
func (s *MemoryStore) Name() string { return "memory" }

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }
