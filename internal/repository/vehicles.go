package repository

import (
	"context"
	"database/sql"

	"parkly/internal/database"
	"parkly/internal/models"
)

type VehicleRepository struct {
	db *database.DB
}

func NewVehicleRepository(db *database.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// FindByPlate resolves a registered vehicle, or nil for unknown plates.
func (r *VehicleRepository) FindByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	query := `
		SELECT id, owner_id, current_holder_id, plate, vehicle_type, shared
		FROM vehicles
		WHERE plate = $1`

	err := r.db.QueryRowContext(ctx, query, plate).Scan(
		&v.ID,
		&v.OwnerID,
		&v.CurrentHolderID,
		&v.Plate,
		&v.Type,
		&v.Shared,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}
