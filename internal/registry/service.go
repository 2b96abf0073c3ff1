// Package registry keeps the latest known position of every tracked entity.
//
// Service is the only writer and the only reader of the underlying
// storage.Store. Reports are validated, stamped with the server clock and
// written with last-write-wins semantics: a later accepted report always
// replaces the stored record for the same entity.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/location-tracker/backend/internal/models"
	"github.com/location-tracker/backend/internal/storage"
)

// ErrInvalidInput reports a malformed or out-of-range position report.
var ErrInvalidInput = errors.New("invalid input")

// ErrStorageUnavailable is returned unchanged from the store.
var ErrStorageUnavailable = storage.ErrUnavailable

type report struct {
	EntityID  string  `validate:"required"`
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

// Service validates position reports and serves snapshots.
type Service struct {
	store    storage.Store
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger

	stampMu   sync.Mutex
	lastStamp time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to stamp ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used by the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service on top of store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: validator.New(),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportPosition records the position of entityID as observed now.
func (s *Service) ReportPosition(ctx context.Context, entityID string, latitude, longitude float64) error {
	if err := s.check(report{EntityID: entityID, Latitude: latitude, Longitude: longitude}); err != nil {
		return err
	}

	rec := models.PositionRecord{
		EntityID:   entityID,
		Latitude:   latitude,
		Longitude:  longitude,
		ObservedAt: s.stamp(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.log.Warn("position write failed", "entity_id", entityID, "error", err)
		return err
	}

	s.log.Debug("position updated", "entity_id", entityID, "latitude", latitude, "longitude", longitude)
	return nil
}

// stamp returns the current UTC time, held at the last issued stamp if the
// wall clock stepped backwards.
func (s *Service) stamp() time.Time {
	now := s.now().UTC()

	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	if now.Before(s.lastStamp) {
		now = s.lastStamp
	}
	s.lastStamp = now
	return now
}

// Snapshot returns every current position record.
func (s *Service) Snapshot(ctx context.Context) ([]models.PositionRecord, error) {
	list, err := s.store.GetAll(ctx)
	if err != nil {
		s.log.Warn("snapshot read failed", "error", err)
		return nil, err
	}
	return list, nil
}

// check runs the struct validator. NaN fails the range tags as well, since
// every comparison against NaN is false.
func (s *Service) check(r report) error {
	err := s.validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldName(fe.Field()))
	}
	return &FieldError{Fields: fields}
}

// FieldError lists the report fields that failed validation.
// It matches ErrInvalidInput under errors.Is.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid input: %s", strings.Join(e.Fields, ", "))
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}

func fieldName(structField string) string {
	switch structField {
	case "EntityID":
		return "entityId"
	case "Latitude":
		return "latitude"
	case "Longitude":
		return "longitude"
	default:
		return structField
	}
}
