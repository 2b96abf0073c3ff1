// mock_storage.go - Mock position store for testing
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/location-tracker/backend/internal/models"
	"github.com/location-tracker/backend/internal/storage"
)

// MockStorage implements storage.Store for testing. Failures and latency can
// be injected to exercise the StorageUnavailable paths.
type MockStorage struct {
	positions map[string]models.PositionRecord
	putCalls  int
	getCalls  int
	failPut   error
	failGet   error
	delay     time.Duration
	mu        sync.RWMutex
}

// NewMockStorage creates an empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		positions: make(map[string]models.PositionRecord),
	}
}

func (m *MockStorage) Put(ctx context.Context, rec models.PositionRecord) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.putCalls++
	if m.failPut != nil {
		return m.failPut
	}
	m.positions[rec.EntityID] = rec
	return nil
}

func (m *MockStorage) GetAll(ctx context.Context) ([]models.PositionRecord, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++
	if m.failGet != nil {
		return nil, m.failGet
	}
	list := make([]models.PositionRecord, 0, len(m.positions))
	for _, rec := range m.positions {
		list = append(list, rec)
	}
	return list, nil
}

func (m *MockStorage) Name() string { return "mock" }

func (m *MockStorage) Close() error { return nil }

// wait sleeps for the configured delay unless ctx ends first.
func (m *MockStorage) wait(ctx context.Context) error {
	m.mu.RLock()
	delay := m.delay
	m.mu.RUnlock()

	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mock store: %w: %v", storage.ErrUnavailable, ctx.Err())
	}
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// FailPuts makes every following Put return StorageUnavailable
func (m *MockStorage) FailPuts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = fmt.Errorf("mock store: %w", storage.ErrUnavailable)
}

// FailGets makes every following GetAll return StorageUnavailable
func (m *MockStorage) FailGets() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = fmt.Errorf("mock store: %w", storage.ErrUnavailable)
}

// FailWith makes both operations return err
func (m *MockStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = err
	m.failGet = err
}

// SetDelay adds latency to every call
func (m *MockStorage) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// AddPosition seeds a record directly, bypassing the registry
func (m *MockStorage) AddPosition(rec models.PositionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[rec.EntityID] = rec
}

// GetPosition returns the stored record for entityID
func (m *MockStorage) GetPosition(entityID string) (models.PositionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.positions[entityID]
	if !ok {
		return models.PositionRecord{}, errors.New("position not found")
	}
	return rec, nil
}

// GetPositionCount returns the number of stored records
func (m *MockStorage) GetPositionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}

// PutCalls returns how many times Put reached the store
func (m *MockStorage) PutCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.putCalls
}

// GetCalls returns how many times GetAll reached the store
func (m *MockStorage) GetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCalls
}

// Clear removes all records and injected failures
func (m *MockStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = make(map[string]models.PositionRecord)
	m.failPut = nil
	m.failGet = nil
	m.delay = 0
	m.putCalls = 0
	m.getCalls = 0
}
