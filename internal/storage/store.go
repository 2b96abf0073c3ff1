package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/location-tracker/backend/internal/config"
	"github.com/location-tracker/backend/internal/models"
)

// ErrUnavailable reports that the persistence layer could not be reached or
// did not answer in time. Callers may retry.
var ErrUnavailable = errors.New("storage unavailable")

// Store defines the interface for position persistence.
//
// Put replaces the record for rec.EntityID, creating it if absent. A reader
// never observes a partially written record.
// GetAll returns every record present at one instant, in no particular order.
type Store interface {
	Put(ctx context.Context, rec models.PositionRecord) error
	GetAll(ctx context.Context) ([]models.PositionRecord, error)
	Name() string
	Close() error
}

// unavailable wraps a backend failure so that errors.Is(err, ErrUnavailable) holds.
func unavailable(op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, cause)
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "duckdb":
		store, err := NewDuckStore(cfg.DuckDBFile)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "pebble":
		store, err := NewPebbleStore(cfg.PebbleDirectory)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
