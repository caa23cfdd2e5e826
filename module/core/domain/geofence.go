package domain

import (
	"fmt"
	"time"
)

type GeoPoint struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lon float64 `json:"longitude" yaml:"longitude"`
}

type Circle struct {
	Center       GeoPoint
	RadiusMeters float64
}

// GeofenceRegion is a configured boundary. Exactly one of Circle or Polygon
// is set; polygon vertices are implicitly closed.
type GeofenceRegion struct {
	ID      string
	Name    string
	Circle  *Circle
	Polygon []GeoPoint
}

// Validate reports a region definition the evaluator cannot test against.
func (r *GeofenceRegion) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id: required")
	}
	switch {
	case r.Circle != nil && len(r.Polygon) > 0:
		return fmt.Errorf("geofence %s: both circle and polygon set", r.ID)
	case r.Circle != nil:
		if !validPoint(r.Circle.Center) {
			return fmt.Errorf("geofence %s: circle center out of range", r.ID)
		}
		if r.Circle.RadiusMeters <= 0 {
			return fmt.Errorf("geofence %s: radius must be positive", r.ID)
		}
	case len(r.Polygon) > 0:
		if len(r.Polygon) < 3 {
			return fmt.Errorf("geofence %s: polygon needs at least 3 vertices, got %d", r.ID, len(r.Polygon))
		}
		for i, p := range r.Polygon {
			if !validPoint(p) {
				return fmt.Errorf("geofence %s: vertex %d out of range", r.ID, i)
			}
		}
	default:
		return fmt.Errorf("geofence %s: no shape", r.ID)
	}
	return nil
}

func validPoint(p GeoPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

type Membership int

const (
	Outside Membership = iota
	Inside
)

func (m Membership) String() string {
	if m == Inside {
		return "INSIDE"
	}
	return "OUTSIDE"
}

type Transition string

const (
	TransitionEnter Transition = "ENTER"
	TransitionExit  Transition = "EXIT"
)

// GeofenceState is the confirmation state of one (vehicle, geofence) pair.
type GeofenceState struct {
	Membership     Membership
	ConfirmedSince time.Time
	PendingValue   Membership
	PendingCount   int
}

// GeofenceAlert is emitted once per confirmed transition.
type GeofenceAlert struct {
	VehicleID    string
	GeofenceID   string
	GeofenceName string
	Transition   Transition
	Timestamp    time.Time
	Location     GeoPoint
}
