package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/database"
)

var _ database.VehicleRegistry = (*VehicleRepo)(nil)

type VehicleRepo struct {
	db *sql.DB
}

func NewVehicleRepo(db *sql.DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

func (r *VehicleRepo) FindByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, status FROM vehicles WHERE id = $1`,
		id,
	)

	var v domain.Vehicle
	if err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}
