package repository

import (
	"context"
	"database/sql"

	"parkly/internal/database"
	errs "parkly/internal/errors"
	"parkly/internal/models"

	"github.com/lib/pq"
)

const guestSessionColumns = `id, lot_id, plate, check_in_staff_id, check_out_staff_id,
	       vehicle_type, schedule_id, entry_time, exit_time, cost, status,
	       entry_front_url, entry_back_url, exit_front_url, exit_back_url,
	       created_at, updated_at`

type GuestSessionRepository struct {
	db *database.DB
}

func NewGuestSessionRepository(db *database.DB) *GuestSessionRepository {
	return &GuestSessionRepository{db: db}
}

func (r *GuestSessionRepository) Create(ctx context.Context, s *models.GuestParkingSession) error {
	query := `
		INSERT INTO guest_parking_sessions (lot_id, plate, check_in_staff_id,
			vehicle_type, schedule_id, entry_time, cost, status,
			entry_front_url, entry_back_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.LotID,
		s.Plate,
		s.CheckInStaffID,
		s.VehicleType,
		s.ScheduleID,
		s.EntryTime,
		s.Cost,
		s.Status,
		s.EntryFrontURL,
		s.EntryBackURL,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return errs.ErrSessionAlreadyOpen
	}
	return err
}

func (r *GuestSessionRepository) scanSession(row interface{ Scan(...interface{}) error }) (*models.GuestParkingSession, error) {
	s := &models.GuestParkingSession{}
	err := row.Scan(
		&s.ID,
		&s.LotID,
		&s.Plate,
		&s.CheckInStaffID,
		&s.CheckOutStaffID,
		&s.VehicleType,
		&s.ScheduleID,
		&s.EntryTime,
		&s.ExitTime,
		&s.Cost,
		&s.Status,
		&s.EntryFrontURL,
		&s.EntryBackURL,
		&s.ExitFrontURL,
		&s.ExitBackURL,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *GuestSessionRepository) GetByID(ctx context.Context, id int64) (*models.GuestParkingSession, error) {
	query := `SELECT ` + guestSessionColumns + ` FROM guest_parking_sessions WHERE id = $1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *GuestSessionRepository) GetOpenByPlate(ctx context.Context, plate string, lotID int64) (*models.GuestParkingSession, error) {
	query := `
		SELECT ` + guestSessionColumns + `
		FROM guest_parking_sessions
		WHERE plate = $1 AND lot_id = $2 AND status = 'Parking'
		ORDER BY entry_time DESC
		LIMIT 1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, plate, lotID))
}

func (r *GuestSessionRepository) Update(ctx context.Context, s *models.GuestParkingSession) error {
	query := `
		UPDATE guest_parking_sessions
		SET check_out_staff_id = $1, exit_time = $2, cost = $3, status = $4,
		    exit_front_url = $5, exit_back_url = $6, updated_at = NOW()
		WHERE id = $7`

	_, err := r.db.ExecContext(ctx, query,
		s.CheckOutStaffID,
		s.ExitTime,
		s.Cost,
		s.Status,
		s.ExitFrontURL,
		s.ExitBackURL,
		s.ID,
	)
	return err
}

func (r *GuestSessionRepository) ListOpenByLot(ctx context.Context, lotID int64) ([]models.GuestParkingSession, error) {
	query := `
		SELECT ` + guestSessionColumns + `
		FROM guest_parking_sessions
		WHERE lot_id = $1 AND status = 'Parking'
		ORDER BY entry_time DESC`

	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.GuestParkingSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}
