package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	"github.com/location-tracker/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

const upsertPositionSQL = `
	INSERT INTO positions (entity_id, latitude, longitude, observed_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (entity_id) DO UPDATE SET
		latitude    = excluded.latitude,
		longitude   = excluded.longitude,
		observed_at = excluded.observed_at
`

// DuckStore persists positions in a DuckDB file, one row per entity.
type DuckStore struct {
	db     *sql.DB
	dbPath string

	// DuckDB aborts concurrent updates of the same row with a conflict
	// error, so writes go through one at a time. A one-slot channel lets a
	// waiting writer give up when its context ends.
	writeSlot chan struct{}
}

// NewDuckStore opens (or creates) the DuckDB database at dbPath.
func NewDuckStore(dbPath string) (*DuckStore, error) {
	log := slog.Default().With("component", "duckstore")
	log.Info("opening database", "path", dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				log.Warn("pragma failed", "pragma", pragma, "error", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			entity_id   VARCHAR PRIMARY KEY,
			latitude    DOUBLE NOT NULL,
			longitude   DOUBLE NOT NULL,
			observed_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &DuckStore{
		db:        db,
		dbPath:    dbPath,
		writeSlot: make(chan struct{}, 1),
	}, nil
}

// Put upserts the row for rec.EntityID.
func (ds *DuckStore) Put(ctx context.Context, rec models.PositionRecord) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put position", err)
	}

	select {
	case ds.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return unavailable("put position", ctx.Err())
	}
	defer func() { <-ds.writeSlot }()

	_, err := ds.db.ExecContext(ctx, upsertPositionSQL,
		rec.EntityID, rec.Latitude, rec.Longitude, rec.ObservedAt.UnixNano())
	if err != nil {
		return unavailable("put position", err)
	}
	return nil
}

// GetAll reads every row with a single statement, which DuckDB serves from
// one consistent snapshot.
func (ds *DuckStore) GetAll(ctx context.Context) ([]models.PositionRecord, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT entity_id, latitude, longitude, observed_at
		FROM positions
		ORDER BY entity_id
	`)
	if err != nil {
		return nil, unavailable("list positions", err)
	}
	defer rows.Close()

	list := make([]models.PositionRecord, 0)
	for rows.Next() {
		var rec models.PositionRecord
		var observedNs int64
		if err := rows.Scan(&rec.EntityID, &rec.Latitude, &rec.Longitude, &observedNs); err != nil {
			return nil, unavailable("scan position", err)
		}
		rec.ObservedAt = time.Unix(0, observedNs).UTC()
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list positions", err)
	}

	return list, nil
}

// Name returns the backend name.
func (ds *DuckStore) Name() string { return "duckdb" }

// Close closes the underlying database.
func (ds *DuckStore) Close() error {
	return ds.db.Close()
}
