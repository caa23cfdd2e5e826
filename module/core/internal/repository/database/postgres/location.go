package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/database"
)

var _ database.LocationStore = (*LocationRepo)(nil)

type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Append(ctx context.Context, sample *domain.LocationSample) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO vehicle_locations (vehicle_id, latitude, longitude, accuracy, altitude, speed, reported_at, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (vehicle_id, reported_at) DO NOTHING
		 RETURNING id`,
		sample.VehicleID, sample.Latitude, sample.Longitude,
		sample.Accuracy, sample.Altitude, sample.Speed,
		sample.ReportedAt, sample.ReceivedAt,
	)

	if err := row.Scan(&sample.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *LocationRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
