package service

import (
	"context"
	"time"

	"parkly/internal/external"
	"parkly/internal/models"
	"parkly/internal/search"
)

// Clock supplies "now" to the engines. Fee calculation and schedule matching
// are time-dependent, so tests inject a fixed clock.
type Clock func() time.Time

// SessionStore is the persistence contract for regular sessions. Lookups
// return (nil, nil) for absent rows; Update is optimistic and returns
// errors.ErrVersionConflict when the row moved underneath the caller.
type SessionStore interface {
	Create(ctx context.Context, s *models.ParkingSession) error
	GetByID(ctx context.Context, id int64) (*models.ParkingSession, error)
	GetOpenByPlate(ctx context.Context, plate string, lotID int64) (*models.ParkingSession, error)
	GetByTransactionID(ctx context.Context, transactionID int64) (*models.ParkingSession, error)
	Update(ctx context.Context, s *models.ParkingSession) error
	ListOpenByLot(ctx context.Context, lotID int64) ([]models.ParkingSession, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.ParkingSession, error)
}

type GuestSessionStore interface {
	Create(ctx context.Context, s *models.GuestParkingSession) error
	GetOpenByPlate(ctx context.Context, plate string, lotID int64) (*models.GuestParkingSession, error)
	Update(ctx context.Context, s *models.GuestParkingSession) error
	ListOpenByLot(ctx context.Context, lotID int64) ([]models.GuestParkingSession, error)
}

type ScheduleStore interface {
	Create(ctx context.Context, s *models.ParkingFeeSchedule) error
	GetByID(ctx context.Context, id int64) (*models.ParkingFeeSchedule, error)
	ListActive(ctx context.Context, lotID int64, vehicleType models.VehicleType) ([]models.ParkingFeeSchedule, error)
	ListByLot(ctx context.Context, lotID int64) ([]models.ParkingFeeSchedule, error)
	Update(ctx context.Context, s *models.ParkingFeeSchedule) error
}

type LotStore interface {
	GetByID(ctx context.Context, id int64) (*models.ParkingLot, error)
	Credentials(ctx context.Context, lotID int64) (*models.LotCredentials, error)
}

type WhitelistChecker interface {
	IsWhitelisted(ctx context.Context, lotID, clientID int64) (bool, error)
}

type VehicleDirectory interface {
	FindByPlate(ctx context.Context, plate string) (*models.Vehicle, error)
}

// FileStore uploads capture images. The engines treat it as best-effort.
type FileStore interface {
	Upload(ctx context.Context, data []byte, subfolder, name string, metadata map[string]string) (string, error)
}

// PaymentGateway is the external payment provider adapter. At-least-once,
// eventually consistent; its reported state is authoritative.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, params external.CreatePaymentParams, clientKey, apiKey string) (*external.PaymentCreationResult, error)
	GetStatus(ctx context.Context, orderCode int64, clientKey, apiKey string) (*external.PaymentStatusData, error)
	Cancel(ctx context.Context, orderCode int64, clientKey, apiKey, reason string) (*external.PaymentStatusData, error)
}

type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

type SessionIndexer interface {
	Index(ctx context.Context, doc search.SessionDocument) error
	Search(ctx context.Context, plate string, lotID int64, from, to time.Time, limit int) ([]search.SessionDocument, error)
}
