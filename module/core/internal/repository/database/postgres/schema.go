package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
		id     TEXT PRIMARY KEY,
		name   TEXT NOT NULL,
		type   TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE'
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_locations (
		id          BIGSERIAL PRIMARY KEY,
		vehicle_id  TEXT NOT NULL REFERENCES vehicles (id),
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		accuracy    DOUBLE PRECISION,
		altitude    DOUBLE PRECISION,
		speed       DOUBLE PRECISION,
		reported_at TIMESTAMPTZ NOT NULL,
		received_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS vehicle_locations_vehicle_reported_idx
		ON vehicle_locations (vehicle_id, reported_at)`,
}

// EnsureSchema creates the tables the location store and vehicle registry
// read and write.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
