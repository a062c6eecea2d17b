package repository

import (
	"context"
	"database/sql"

	"parkly/internal/database"
	"parkly/internal/models"
)

const scheduleColumns = `id, lot_id, vehicle_type, weekdays, start_minute, end_minute,
	       initial_fee, additional_fee, block_minutes, active, created_at, updated_at`

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *models.ParkingFeeSchedule) error {
	query := `
		INSERT INTO parking_fee_schedules (lot_id, vehicle_type, weekdays,
			start_minute, end_minute, initial_fee, additional_fee,
			block_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		s.LotID,
		s.VehicleType,
		s.Weekdays,
		s.StartMinute,
		s.EndMinute,
		s.InitialFee,
		s.AdditionalFee,
		s.BlockMinutes,
		s.Active,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *ScheduleRepository) scanSchedule(row interface{ Scan(...interface{}) error }) (*models.ParkingFeeSchedule, error) {
	s := &models.ParkingFeeSchedule{}
	err := row.Scan(
		&s.ID,
		&s.LotID,
		&s.VehicleType,
		&s.Weekdays,
		&s.StartMinute,
		&s.EndMinute,
		&s.InitialFee,
		&s.AdditionalFee,
		&s.BlockMinutes,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.ParkingFeeSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM parking_fee_schedules WHERE id = $1`
	return r.scanSchedule(r.db.QueryRowContext(ctx, query, id))
}

func (r *ScheduleRepository) ListActive(ctx context.Context, lotID int64, vehicleType models.VehicleType) ([]models.ParkingFeeSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM parking_fee_schedules
		WHERE lot_id = $1 AND vehicle_type = $2 AND active = TRUE
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, lotID, vehicleType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.ParkingFeeSchedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}

	return schedules, rows.Err()
}

func (r *ScheduleRepository) ListByLot(ctx context.Context, lotID int64) ([]models.ParkingFeeSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM parking_fee_schedules
		WHERE lot_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.ParkingFeeSchedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}

	return schedules, rows.Err()
}

func (r *ScheduleRepository) Update(ctx context.Context, s *models.ParkingFeeSchedule) error {
	query := `
		UPDATE parking_fee_schedules
		SET weekdays = $1, start_minute = $2, end_minute = $3, initial_fee = $4,
		    additional_fee = $5, block_minutes = $6, active = $7, updated_at = NOW()
		WHERE id = $8`

	_, err := r.db.ExecContext(ctx, query,
		s.Weekdays,
		s.StartMinute,
		s.EndMinute,
		s.InitialFee,
		s.AdditionalFee,
		s.BlockMinutes,
		s.Active,
		s.ID,
	)
	return err
}
