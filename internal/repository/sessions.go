package repository

import (
	"context"
	"database/sql"
	"time"

	"parkly/internal/database"
	errs "parkly/internal/errors"
	"parkly/internal/models"

	"github.com/lib/pq"
)

const sessionColumns = `id, lot_id, plate, vehicle_id, driver_id, check_in_staff_id,
	       check_out_staff_id, vehicle_type, schedule_id, entry_time, check_out_time,
	       exit_time, cost, payment_method, payment_status, transaction_id,
	       payment_information, transaction_count, status, entry_front_url,
	       entry_back_url, exit_front_url, exit_back_url, version, created_at, updated_at`

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.ParkingSession) error {
	query := `
		INSERT INTO parking_sessions (lot_id, plate, vehicle_id, driver_id,
			check_in_staff_id, vehicle_type, schedule_id, entry_time, cost,
			payment_method, payment_status, transaction_count, status,
			entry_front_url, entry_back_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, version, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.LotID,
		s.Plate,
		s.VehicleID,
		s.DriverID,
		s.CheckInStaffID,
		s.VehicleType,
		s.ScheduleID,
		s.EntryTime,
		s.Cost,
		s.PaymentMethod,
		s.PaymentStatus,
		s.TransactionCount,
		s.Status,
		s.EntryFrontURL,
		s.EntryBackURL,
	).Scan(&s.ID, &s.Version, &s.CreatedAt, &s.UpdatedAt)

	// The partial unique index on (plate, lot_id) WHERE status='Parking'
	// enforces the single-open-session invariant under concurrency.
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return errs.ErrSessionAlreadyOpen
	}
	return err
}

func (r *SessionRepository) scanSession(row interface{ Scan(...interface{}) error }) (*models.ParkingSession, error) {
	s := &models.ParkingSession{}
	err := row.Scan(
		&s.ID,
		&s.LotID,
		&s.Plate,
		&s.VehicleID,
		&s.DriverID,
		&s.CheckInStaffID,
		&s.CheckOutStaffID,
		&s.VehicleType,
		&s.ScheduleID,
		&s.EntryTime,
		&s.CheckOutTime,
		&s.ExitTime,
		&s.Cost,
		&s.PaymentMethod,
		&s.PaymentStatus,
		&s.TransactionID,
		&s.PaymentInformation,
		&s.TransactionCount,
		&s.Status,
		&s.EntryFrontURL,
		&s.EntryBackURL,
		&s.ExitFrontURL,
		&s.ExitBackURL,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

// GetOpenByPlate returns the most recent not-yet-finished session for the
// plate in the lot, or nil when none exists.
func (r *SessionRepository) GetOpenByPlate(ctx context.Context, plate string, lotID int64) (*models.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE plate = $1 AND lot_id = $2 AND status != 'Finished'
		ORDER BY entry_time DESC
		LIMIT 1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, plate, lotID))
}

func (r *SessionRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*models.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE transaction_id = $1
		ORDER BY updated_at DESC
		LIMIT 1`
	return r.scanSession(r.db.QueryRowContext(ctx, query, transactionID))
}

// Update writes the session back under optimistic concurrency. The caller's
// Version must match the stored row; the reconciliation poll and the webhook
// handler race on the same rows and the loser gets ErrVersionConflict.
func (r *SessionRepository) Update(ctx context.Context, s *models.ParkingSession) error {
	query := `
		UPDATE parking_sessions
		SET driver_id = $1, check_out_staff_id = $2, schedule_id = $3,
		    check_out_time = $4, exit_time = $5, cost = $6, payment_method = $7,
		    payment_status = $8, transaction_id = $9, payment_information = $10,
		    transaction_count = $11, status = $12, exit_front_url = $13,
		    exit_back_url = $14, version = version + 1, updated_at = NOW()
		WHERE id = $15 AND version = $16`

	res, err := r.db.ExecContext(ctx, query,
		s.DriverID,
		s.CheckOutStaffID,
		s.ScheduleID,
		s.CheckOutTime,
		s.ExitTime,
		s.Cost,
		s.PaymentMethod,
		s.PaymentStatus,
		s.TransactionID,
		s.PaymentInformation,
		s.TransactionCount,
		s.Status,
		s.ExitFrontURL,
		s.ExitBackURL,
		s.ID,
		s.Version,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrVersionConflict
	}

	s.Version++
	return nil
}

func (r *SessionRepository) ListOpenByLot(ctx context.Context, lotID int64) ([]models.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE lot_id = $1 AND status != 'Finished'
		ORDER BY entry_time DESC`

	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ParkingSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}

// ListPendingOlderThan feeds the reconciliation poller: sessions whose bank
// payment has been Pending since before the cutoff.
func (r *SessionRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE payment_status = 'Pending'
		  AND status != 'Finished'
		  AND updated_at < $1
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ParkingSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}
