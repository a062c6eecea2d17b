package service

import (
	"context"
	"fmt"
	"time"

	errs "parkly/internal/errors"
	"parkly/internal/logger"
	"parkly/internal/models"
	"parkly/internal/search"
)

// GuestSessionService handles stays of unregistered plates. Guests settle in
// cash at the gate, so there is no payment state machine: Finish always
// closes the session with the fee computed at that moment.
type GuestSessionService struct {
	sessions  GuestSessionStore
	schedules *FeeScheduleService
	lots      LotStore
	storage   FileStore
	nats      EventPublisher
	index     SessionIndexer
	now       Clock
}

func NewGuestSessionService(
	sessions GuestSessionStore,
	schedules *FeeScheduleService,
	lots LotStore,
	storage FileStore,
	nats EventPublisher,
	index SessionIndexer,
	now Clock,
) *GuestSessionService {
	if now == nil {
		now = time.Now
	}
	return &GuestSessionService{
		sessions:  sessions,
		schedules: schedules,
		lots:      lots,
		storage:   storage,
		nats:      nats,
		index:     index,
		now:       now,
	}
}

func (s *GuestSessionService) CheckIn(ctx context.Context, req *models.GuestCheckInRequest, staffID int64) (*models.GuestParkingSession, error) {
	lot, err := s.lots.GetByID(ctx, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	if lot == nil {
		return nil, errs.ErrLotNotFound
	}
	// Whitelist-only lots admit registered members only; guests have no
	// identity to check against the list.
	if lot.WhitelistOnly {
		return nil, errs.ErrUnauthorized
	}

	vehicleType, err := models.ParseVehicleType(req.VehicleType)
	if err != nil {
		return nil, err
	}

	existing, err := s.sessions.GetOpenByPlate(ctx, req.Plate, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for open session: %w", err)
	}
	if existing != nil {
		return nil, errs.ErrSessionAlreadyOpen
	}

	now := s.now()
	scheduleID, err := s.schedules.ResolveActiveSchedule(ctx, req.LotID, vehicleType, now)
	if err != nil {
		return nil, err
	}

	session := &models.GuestParkingSession{
		LotID:          req.LotID,
		Plate:          req.Plate,
		CheckInStaffID: staffID,
		VehicleType:    vehicleType,
		ScheduleID:     scheduleID,
		EntryTime:      now,
		Status:         models.SessionParking,
		EntryFrontURL:  s.uploadCapture(ctx, req.FrontCap, req.Plate, "EntryFront"),
		EntryBackURL:   s.uploadCapture(ctx, req.BackCap, req.Plate, "EntryBack"),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventGuestSessionOpened, models.SessionCheckedInEvent{
		SessionID: session.ID,
		LotID:     session.LotID,
		Plate:     session.Plate,
		Timestamp: now,
	})

	return session, nil
}

// Finish closes a guest session unconditionally. The returned cost is what
// the staff collects in cash at the gate.
func (s *GuestSessionService) Finish(ctx context.Context, req *models.FinishRequest, staffID int64) (*models.GuestParkingSession, error) {
	session, err := s.sessions.GetOpenByPlate(ctx, req.Plate, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}

	now := s.now()

	cost := int64(0)
	if session.ScheduleID != nil {
		cost, err = s.schedules.CalculateFee(ctx, *session.ScheduleID, session.VehicleType, session.EntryTime, now)
		if err != nil {
			return nil, err
		}
	}

	session.Cost = cost
	session.Status = models.SessionFinished
	session.ExitTime = &now
	session.CheckOutStaffID = &staffID
	session.ExitFrontURL = s.uploadCapture(ctx, req.FrontCap, session.Plate, "ExitFront")
	session.ExitBackURL = s.uploadCapture(ctx, req.BackCap, session.Plate, "ExitBack")

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventGuestSessionClosed, models.SessionFinishedEvent{
		SessionID: session.ID,
		LotID:     session.LotID,
		Plate:     session.Plate,
		Cost:      session.Cost,
		Timestamp: now,
	})

	if s.index != nil {
		doc := search.SessionDocument{
			SessionID:   session.ID,
			Guest:       true,
			LotID:       session.LotID,
			Plate:       session.Plate,
			VehicleType: string(session.VehicleType),
			EntryTime:   session.EntryTime,
			ExitTime:    now,
			Cost:        session.Cost,
		}
		if err := s.index.Index(ctx, doc); err != nil {
			logger.WithContext(ctx).Error("Failed to index guest session history",
				"error", err,
				"session_id", session.ID)
		}
	}

	return session, nil
}

func (s *GuestSessionService) ListOpen(ctx context.Context, lotID int64) ([]models.GuestParkingSession, error) {
	return s.sessions.ListOpenByLot(ctx, lotID)
}

func (s *GuestSessionService) uploadCapture(ctx context.Context, cap *models.Capture, plate, kind string) string {
	if cap == nil || s.storage == nil {
		return ""
	}
	url, err := s.storage.Upload(ctx, cap.Data, plate, kind, map[string]string{
		"plate": plate,
		"kind":  kind,
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to upload capture",
			"error", err,
			"plate", plate,
			"kind", kind)
		return ""
	}
	return url
}

func (s *GuestSessionService) publish(ctx context.Context, subject string, event interface{}) {
	if s.nats == nil {
		return
	}
	if err := s.nats.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}
