package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/location-tracker/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const positionKeyPrefix = "position/"

var errStoreClosed = errors.New("store closed")

// PebbleStore persists positions in a Pebble LSM, keyed by entity ID.
// Values are MessagePack-encoded PositionRecords.
//
// A synced Set cannot be interrupted, so it runs on its own goroutine while
// Put waits on the caller's context. writeSlot keeps one Set in flight at a
// time, which stops an abandoned write from landing after a newer one.
type PebbleStore struct {
	db  *pebble.DB
	dir string

	writeSlot chan struct{}
	readMu    sync.RWMutex
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPebbleStore opens (or creates) the Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	return &PebbleStore{
		db:        db,
		dir:       dir,
		writeSlot: make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}, nil
}

// Put replaces the value for rec.EntityID with a single synced Set. It
// returns ErrUnavailable as soon as ctx ends, even if the Set is still
// running; that write may still land.
func (ps *PebbleStore) Put(ctx context.Context, rec models.PositionRecord) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put position", err)
	}

	val, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encoding position: %w", err)
	}

	select {
	case ps.writeSlot <- struct{}{}:
	case <-ps.closed:
		return unavailable("put position", errStoreClosed)
	case <-ctx.Done():
		return unavailable("put position", ctx.Err())
	}
	if ps.isClosed() {
		<-ps.writeSlot
		return unavailable("put position", errStoreClosed)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-ps.writeSlot }()
		done <- ps.db.Set(positionKey(rec.EntityID), val, pebble.Sync)
	}()

	select {
	case err := <-done:
		if err != nil {
			return unavailable("put position", err)
		}
		return nil
	case <-ctx.Done():
		return unavailable("put position", ctx.Err())
	}
}

// GetAll iterates a Pebble snapshot so concurrent writes are either wholly
// visible or not at all.
func (ps *PebbleStore) GetAll(ctx context.Context) ([]models.PositionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list positions", err)
	}

	ps.readMu.RLock()
	defer ps.readMu.RUnlock()
	if ps.isClosed() {
		return nil, unavailable("list positions", errStoreClosed)
	}

	snap := ps.db.NewSnapshot()
	defer snap.Close()

	iter, err := snap.NewIter(&pebble.IterOptions{
		LowerBound: []byte(positionKeyPrefix),
		UpperBound: prefixUpperBound(positionKeyPrefix),
	})
	if err != nil {
		return nil, unavailable("list positions", err)
	}
	defer iter.Close()

	list := make([]models.PositionRecord, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, unavailable("list positions", err)
		}

		var rec models.PositionRecord
		if err := msgpack.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decoding position %q: %w", iter.Key(), err)
		}
		rec.ObservedAt = rec.ObservedAt.UTC()
		list = append(list, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, unavailable("list positions", err)
	}

	return list, nil
}

// Name returns the backend name.
func (ps *PebbleStore) Name() string { return "pebble" }

// Close waits for the in-flight write and open reads, then flushes and
// closes the database. Later calls return nil.
func (ps *PebbleStore) Close() error {
	var err error
	ps.closeOnce.Do(func() {
		close(ps.closed)
		ps.writeSlot <- struct{}{}
		ps.readMu.Lock()
		defer ps.readMu.Unlock()
		err = ps.db.Close()
	})
	return err
}

func (ps *PebbleStore) isClosed() bool {
	select {
	case <-ps.closed:
		return true
	default:
		return false
	}
}

func positionKey(entityID string) []byte {
	return []byte(positionKeyPrefix + entityID)
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
