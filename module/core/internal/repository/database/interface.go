package database

import (
	"context"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

// LocationStore persists accepted samples. Append reports created=false when
// a sample with the same (vehicle, reported timestamp) already exists.
type LocationStore interface {
	Append(ctx context.Context, sample *domain.LocationSample) (created bool, err error)
	Ping(ctx context.Context) error
}

// VehicleRegistry resolves vehicles by id, returning domain.ErrVehicleNotFound
// for unknown ids.
type VehicleRegistry interface {
	FindByID(ctx context.Context, id string) (*domain.Vehicle, error)
}
