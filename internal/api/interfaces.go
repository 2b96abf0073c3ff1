// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/location-tracker/backend/internal/models"
)

// LocationHandler handles position ingest and snapshot operations
type LocationHandler interface {
	HandleReportPosition(c echo.Context) error
	HandleSnapshot(c echo.Context) error
	HandleSnapshotMsgpack(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Registry defines what the handlers need from the registry service.
// This allows mocking in tests
type Registry interface {
	ReportPosition(ctx context.Context, entityID string, latitude, longitude float64) error
	Snapshot(ctx context.Context) ([]models.PositionRecord, error)
}
