// handlers_location.go - Position ingest and snapshot handlers
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/location-tracker/backend/internal/models"
	"github.com/location-tracker/backend/internal/registry"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultRequestTimeout bounds registry calls when no timeout is configured.
const DefaultRequestTimeout = 2 * time.Second

// LocationHandlerImpl implements the LocationHandler interface
type LocationHandlerImpl struct {
	registry Registry
	timeout  time.Duration
}

// NewLocationHandler creates a new location handler instance
func NewLocationHandler(reg Registry, timeout time.Duration) LocationHandler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &LocationHandlerImpl{
		registry: reg,
		timeout:  timeout,
	}
}

// HandleReportPosition accepts a position report for one entity
func (h *LocationHandlerImpl) HandleReportPosition(c echo.Context) error {
	var req reportPositionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	err := h.registry.ReportPosition(ctx, req.entityID(), req.Latitude.value, req.Longitude.value)
	if err != nil {
		return registryError(err, "Failed to update location")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Location updated",
	})
}

// HandleSnapshot returns every current position as a JSON array
func (h *LocationHandlerImpl) HandleSnapshot(c echo.Context) error {
	list, err := h.snapshot(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// HandleSnapshotMsgpack returns every current position in MessagePack format
func (h *LocationHandlerImpl) HandleSnapshotMsgpack(c echo.Context) error {
	list, err := h.snapshot(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(list)
	if err != nil {
		return NewInternalError("failed to encode msgpack")
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *LocationHandlerImpl) snapshot(c echo.Context) ([]models.PositionRecord, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	list, err := h.registry.Snapshot(ctx)
	if err != nil {
		return nil, registryError(err, "Failed to fetch locations")
	}
	if list == nil {
		list = []models.PositionRecord{}
	}
	return list, nil
}

// registryError maps registry failures onto API errors. Storage details stay
// on the server side.
func registryError(err error, message string) *APIError {
	var fieldErr *registry.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return NewValidationError(fieldErr.Fields...)
	case errors.Is(err, registry.ErrInvalidInput):
		return NewValidationError()
	case errors.Is(err, registry.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return NewStorageUnavailableError(message)
	default:
		return NewInternalError(message)
	}
}

// Request types

type reportPositionRequest struct {
	EntityID  string     `json:"entityId"`
	UserID    string     `json:"userId"` // legacy clients send userId
	Latitude  coordinate `json:"latitude"`
	Longitude coordinate `json:"longitude"`
}

func (r *reportPositionRequest) entityID() string {
	if r.EntityID != "" {
		return r.EntityID
	}
	return r.UserID
}

func (r *reportPositionRequest) validate() error {
	if !r.Latitude.set {
		return NewBadRequestError("latitude is required", nil)
	}
	if !r.Longitude.set {
		return NewBadRequestError("longitude is required", nil)
	}
	return nil
}

// coordinate accepts a JSON number or a numeric string.
type coordinate struct {
	value float64
	set   bool
}

func (c *coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("coordinate %s is not a number", data)
	}
	c.value = v
	c.set = true
	return nil
}
