package rpc

import (
	"time"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

type LocationRequest struct {
	VehicleID string   `json:"vehicle_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func (r *LocationRequest) Report() *domain.LocationReport {
	return &domain.LocationReport{
		VehicleID: r.VehicleID,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Accuracy:  r.Accuracy,
		Altitude:  r.Altitude,
		Speed:     r.Speed,
		Timestamp: r.Timestamp,
	}
}

// LocationResponse answers one LocationRequest. ErrorKind is set only on
// failed stream responses; unary failures travel as gRPC status errors.
type LocationResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ServerTime time.Time `json:"server_time"`
	ServerID   string    `json:"server_id"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
}

func ResponseFromAck(ack *domain.Ack) *LocationResponse {
	return &LocationResponse{
		Success:    ack.Success,
		Message:    ack.Message,
		ServerTime: ack.ServerTime,
		ServerID:   ack.ServerID,
		Duplicate:  ack.Duplicate,
	}
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
