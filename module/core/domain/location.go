package domain

import "time"

// LocationReport is an inbound report as a vehicle sent it. Pointer fields
// distinguish "absent" from a legitimate zero value.
type LocationReport struct {
	VehicleID string   `json:"vehicle_id" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Timestamp string   `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// LocationSample is an accepted, persisted report.
type LocationSample struct {
	ID         int64
	VehicleID  string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	Altitude   *float64
	Speed      *float64
	ReportedAt time.Time
	ReceivedAt time.Time
}

func (s *LocationSample) Point() GeoPoint {
	return GeoPoint{Lat: s.Latitude, Lon: s.Longitude}
}

type Vehicle struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Ack is returned to an ingesting caller once the sample is persisted.
type Ack struct {
	Success    bool
	Message    string
	ServerTime time.Time
	ServerID   string
	Duplicate  bool
}
