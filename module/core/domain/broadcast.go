package domain

import "time"

// BroadcastEnvelope is the location:update payload pushed to dashboards.
// location.timestamp on the wire is the emission time; the client-reported
// time and EmittedAt stay in-process.
type BroadcastEnvelope struct {
	VehicleID string           `json:"vehicleId"`
	Location  EnvelopeLocation `json:"location"`
	Vehicle   Vehicle          `json:"vehicle"`
	EmittedAt time.Time        `json:"-"`
}

type EnvelopeLocation struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Timestamp  time.Time `json:"timestamp"`
	ReportedAt time.Time `json:"-"`
}

const EventLocationUpdate = "location:update"

func NewEnvelope(sample *LocationSample, vehicle *Vehicle, emittedAt time.Time) BroadcastEnvelope {
	return BroadcastEnvelope{
		VehicleID: sample.VehicleID,
		Location: EnvelopeLocation{
			Latitude:   sample.Latitude,
			Longitude:  sample.Longitude,
			Accuracy:   sample.Accuracy,
			Speed:      sample.Speed,
			Timestamp:  emittedAt,
			ReportedAt: sample.ReportedAt,
		},
		Vehicle:   *vehicle,
		EmittedAt: emittedAt,
	}
}

type HealthStatus struct {
	Healthy   bool
	Status    string
	Timestamp time.Time
}

const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)
