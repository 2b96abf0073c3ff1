package models

import "time"

// PositionRecord is the latest known position of a tracked entity.
// ObservedAt is always assigned by the server when the report is accepted.
type PositionRecord struct {
	EntityID   string    `json:"entityId" msgpack:"entityId"`
	Latitude   float64   `json:"latitude" msgpack:"latitude"`
	Longitude  float64   `json:"longitude" msgpack:"longitude"`
	ObservedAt time.Time `json:"observedAt" msgpack:"observedAt"`
}
