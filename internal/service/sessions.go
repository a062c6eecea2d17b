package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	errs "parkly/internal/errors"
	"parkly/internal/external"
	"parkly/internal/logger"
	"parkly/internal/models"
	"parkly/internal/search"
)

// SessionService orchestrates the parking-session lifecycle: check-in,
// check-out, finish and the payment reconciliation protocol against the
// gateway.
type SessionService struct {
	sessions  SessionStore
	schedules *FeeScheduleService
	lots      LotStore
	vehicles  VehicleDirectory
	whitelist WhitelistChecker
	storage   FileStore
	gateway   PaymentGateway
	nats      EventPublisher
	index     SessionIndexer
	now       Clock
}

func NewSessionService(
	sessions SessionStore,
	schedules *FeeScheduleService,
	lots LotStore,
	vehicles VehicleDirectory,
	whitelist WhitelistChecker,
	storage FileStore,
	gateway PaymentGateway,
	nats EventPublisher,
	index SessionIndexer,
	now Clock,
) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:  sessions,
		schedules: schedules,
		lots:      lots,
		vehicles:  vehicles,
		whitelist: whitelist,
		storage:   storage,
		gateway:   gateway,
		nats:      nats,
		index:     index,
		now:       now,
	}
}

// CheckIn opens a session for an arriving vehicle. The fee schedule active at
// this moment is bound to the session and reused for the whole stay.
func (s *SessionService) CheckIn(ctx context.Context, req *models.CheckInRequest, staffID int64) (*models.ParkingSession, error) {
	lot, err := s.lots.GetByID(ctx, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	if lot == nil {
		return nil, errs.ErrLotNotFound
	}

	// Resolve vehicle and driver by plate; unregistered plates fall back to
	// the caller-supplied vehicle type and an empty driver.
	var vehicleID, driverID *int64
	vehicleType := models.VehicleCar
	if req.VehicleType != "" {
		vehicleType, err = models.ParseVehicleType(req.VehicleType)
		if err != nil {
			return nil, err
		}
	}

	vehicle, err := s.vehicles.FindByPlate(ctx, req.Plate)
	if err != nil {
		return nil, fmt.Errorf("failed to look up vehicle: %w", err)
	}
	if vehicle != nil {
		vehicleID = &vehicle.ID
		driver := vehicle.Driver()
		driverID = &driver
		vehicleType = vehicle.Type
	}

	if lot.WhitelistOnly {
		clientID := staffID
		if driverID != nil {
			clientID = *driverID
		}
		ok, err := s.whitelist.IsWhitelisted(ctx, lot.ID, clientID)
		if err != nil {
			return nil, fmt.Errorf("failed to check whitelist: %w", err)
		}
		if !ok {
			return nil, errs.ErrUnauthorized
		}
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

	session := &models.ParkingSession{
		LotID:          req.LotID,
		Plate:          req.Plate,
		VehicleID:      vehicleID,
		DriverID:       driverID,
		CheckInStaffID: staffID,
		VehicleType:    vehicleType,
		ScheduleID:     scheduleID,
		EntryTime:      now,
		PaymentStatus:  models.PaymentNotPaid,
		Status:         models.SessionParking,
		EntryFrontURL:  s.uploadCapture(ctx, req.FrontCap, req.Plate, "EntryFront"),
		EntryBackURL:   s.uploadCapture(ctx, req.BackCap, req.Plate, "EntryBack"),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventSessionCheckedIn, models.SessionCheckedInEvent{
		SessionID: session.ID,
		LotID:     session.LotID,
		Plate:     session.Plate,
		DriverID:  session.DriverID,
		Timestamp: now,
	})

	return session, nil
}

// CheckOut records the driver's intent to leave and, for bank payment,
// issues the first payment request. The vehicle physically leaves only at
// Finish.
func (s *SessionService) CheckOut(ctx context.Context, sessionID int64, method models.PaymentMethod, driverID int64) (*models.ParkingSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}
	if session.DriverID == nil || *session.DriverID != driverID {
		return nil, errs.ErrUnauthorized
	}
	if session.Status != models.SessionParking || session.CheckOutTime != nil {
		return nil, errs.ErrAlreadyCheckedOut
	}

	now := s.now()
	cost, err := s.currentFee(ctx, session, now)
	if err != nil {
		return nil, err
	}

	session.CheckOutTime = &now
	session.Cost = cost
	session.PaymentMethod = method

	if method == models.MethodBank {
		creds, err := s.credentials(ctx, session.LotID)
		if err != nil {
			return nil, err
		}
		if err := s.createPaymentRequest(ctx, session, cost, creds); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventSessionCheckedOut, models.SessionCheckedOutEvent{
		SessionID:     session.ID,
		LotID:         session.LotID,
		Cost:          session.Cost,
		PaymentMethod: string(session.PaymentMethod),
		Timestamp:     now,
	})

	return session, nil
}

// Finish confirms the physical exit. A session may not leave unpaid through
// this path; a stale Paid flag that no longer covers the recomputed fee is
// reset, forcing a fresh reconciliation round.
func (s *SessionService) Finish(ctx context.Context, req *models.FinishRequest, staffID int64) (*models.ParkingSession, error) {
	session, err := s.sessions.GetOpenByPlate(ctx, req.Plate, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}

	if session.PaymentStatus == models.PaymentNotPaid {
		return nil, errs.ErrSessionNotPaid
	}

	now := s.now()

	if session.PaymentStatus == models.PaymentPaid {
		fee, err := s.currentFee(ctx, session, now)
		if err != nil {
			return nil, err
		}
		if fee > session.Cost {
			// The stay extended past what was settled. Drop the stale Paid
			// flag so the next payment round collects the difference.
			session.PaymentStatus = models.PaymentNotPaid
			if err := s.sessions.Update(ctx, session); err != nil {
				return nil, err
			}
			return nil, errs.ErrPaymentExpired
		}
	}

	return s.finalize(ctx, session, req, staffID, now, false)
}

// ForceFinish closes a session without requiring settled payment. Staff use
// it for cash settlement on-site or when the gateway is down.
//
// The payment method is derived the way the billing system always has: Bank
// when no method was ever chosen, Cash otherwise - including when the driver
// had already chosen Bank. Changing this breaks downstream revenue reports,
// so it stays pinned by tests.
func (s *SessionService) ForceFinish(ctx context.Context, req *models.FinishRequest, staffID int64) (*models.ParkingSession, error) {
	session, err := s.sessions.GetOpenByPlate(ctx, req.Plate, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}

	if session.PaymentMethod == models.MethodUnset {
		session.PaymentMethod = models.MethodBank
	} else {
		session.PaymentMethod = models.MethodCash
	}

	now := s.now()
	cost, err := s.currentFee(ctx, session, now)
	if err != nil {
		return nil, err
	}
	session.Cost = cost
	session.PaymentStatus = models.PaymentPaid

	return s.finalize(ctx, session, req, staffID, now, true)
}

func (s *SessionService) finalize(ctx context.Context, session *models.ParkingSession, req *models.FinishRequest, staffID int64, now time.Time, forced bool) (*models.ParkingSession, error) {
	session.ExitFrontURL = s.uploadCapture(ctx, req.FrontCap, session.Plate, "ExitFront")
	session.ExitBackURL = s.uploadCapture(ctx, req.BackCap, session.Plate, "ExitBack")
	session.Status = models.SessionFinished
	session.ExitTime = &now
	session.CheckOutStaffID = &staffID

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventSessionFinished, models.SessionFinishedEvent{
		SessionID: session.ID,
		LotID:     session.LotID,
		Plate:     session.Plate,
		Cost:      session.Cost,
		Forced:    forced,
		Timestamp: now,
	})

	s.archive(ctx, search.SessionDocument{
		SessionID:   session.ID,
		LotID:       session.LotID,
		Plate:       session.Plate,
		VehicleType: string(session.VehicleType),
		EntryTime:   session.EntryTime,
		ExitTime:    now,
		Cost:        session.Cost,
		Forced:      forced,
	})

	return session, nil
}

// GetPaymentInfo is the driver-facing reconciliation poll.
func (s *SessionService) GetPaymentInfo(ctx context.Context, sessionID, driverID int64) (*models.PaymentInfoResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}
	if session.DriverID == nil || *session.DriverID != driverID {
		return nil, errs.ErrUnauthorized
	}
	return s.reconcile(ctx, session)
}

// GetPaymentInfoByStaff is the staff-facing reconciliation poll, addressed by
// plate rather than session id.
func (s *SessionService) GetPaymentInfoByStaff(ctx context.Context, plate string, lotID int64) (*models.PaymentInfoResponse, error) {
	session, err := s.sessions.GetOpenByPlate(ctx, plate, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}
	return s.reconcile(ctx, session)
}

// reconcile aligns the session with the gateway's authoritative state.
// Repeated calls while the request is merely pending return the cached
// payload untouched; a new payment request is issued only for the explicit
// terminal-failure statuses.
func (s *SessionService) reconcile(ctx context.Context, session *models.ParkingSession) (*models.PaymentInfoResponse, error) {
	if session.TransactionID == nil || session.PaymentInformation == nil {
		return nil, errs.ErrNoPaymentInfo
	}
	if session.PaymentStatus == models.PaymentPaid {
		return nil, errs.ErrAlreadyPaid
	}

	creds, err := s.credentials(ctx, session.LotID)
	if err != nil {
		return nil, err
	}

	status, err := s.gateway.GetStatus(ctx, *session.TransactionID, creds.ClientKey, creds.APIKey)
	if err != nil {
		return nil, err
	}

	var amount int64
	switch status.Status {
	case models.GatewayPaid:
		// Settled at the gateway; the webhook updates the session.
		return &models.PaymentInfoResponse{Settled: true}, nil
	case models.GatewayUnderpaid:
		// The gateway's remaining balance is authoritative, not the locally
		// computed fee.
		amount = status.AmountRemaining
	case models.GatewayExpired, models.GatewayCancelled:
		amount, err = s.currentFee(ctx, session, s.now())
		if err != nil {
			return nil, err
		}
	default:
		return &models.PaymentInfoResponse{Payment: json.RawMessage(*session.PaymentInformation)}, nil
	}

	if err := s.createPaymentRequest(ctx, session, amount, creds); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	return &models.PaymentInfoResponse{Payment: json.RawMessage(*session.PaymentInformation)}, nil
}

// ReconcilePending sweeps sessions whose bank payment has been Pending since
// before the cutoff. Used by the background poller; failures are logged and
// the sweep moves on.
func (s *SessionService) ReconcilePending(ctx context.Context, cutoff time.Time) (int, error) {
	sessions, err := s.sessions.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending sessions: %w", err)
	}

	reconciled := 0
	for i := range sessions {
		if _, err := s.reconcile(ctx, &sessions[i]); err != nil {
			logger.WithContext(ctx).Error("Failed to reconcile session",
				"error", err,
				"session_id", sessions[i].ID)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

// ConfirmTransaction applies a gateway webhook. Delivery is at-least-once and
// possibly out of order: webhooks for unknown or superseded order codes are
// dropped without error.
func (s *SessionService) ConfirmTransaction(ctx context.Context, webhook *models.PaymentWebhook) error {
	session, err := s.sessions.GetByTransactionID(ctx, webhook.Data.OrderCode)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		logger.WithContext(ctx).Info("Dropping webhook for unknown transaction",
			"order_code", webhook.Data.OrderCode)
		return nil
	}

	creds, err := s.credentials(ctx, session.LotID)
	if err != nil {
		return err
	}
	if !external.VerifyWebhookSignature(creds.ChecksumKey, webhook) {
		return errs.ErrUnauthorized
	}

	if session.PaymentStatus == models.PaymentPaid {
		// Duplicate delivery after settlement; nothing to do.
		return nil
	}

	now := s.now()

	if webhook.Success {
		session.PaymentStatus = models.PaymentPaid
		// The gateway-confirmed amount overrides the local estimate.
		session.Cost = webhook.Data.Amount
		session.Status = models.SessionCheckedOut
		if session.PaymentMethod == models.MethodUnset {
			session.PaymentMethod = models.MethodBank
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}
		s.publish(ctx, models.EventPaymentConfirmed, models.PaymentConfirmedEvent{
			SessionID:     session.ID,
			TransactionID: webhook.Data.OrderCode,
			Amount:        webhook.Data.Amount,
			Timestamp:     now,
		})
		return nil
	}

	// Failed outcome: the session re-enters the checkout-pending window so
	// the driver can retry.
	session.PaymentStatus = models.PaymentNotPaid
	session.Status = models.SessionParking
	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}
	s.publish(ctx, models.EventPaymentFailed, models.PaymentFailedEvent{
		SessionID:     session.ID,
		TransactionID: webhook.Data.OrderCode,
		Reason:        webhook.Data.Status,
		Timestamp:     now,
	})
	return nil
}

// CancelPayment is a thin pass-through to the gateway for explicit
// staff/driver-initiated cancellation.
func (s *SessionService) CancelPayment(ctx context.Context, sessionID int64, reason string) (*external.PaymentStatusData, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}
	if session.TransactionID == nil {
		return nil, errs.ErrNoPaymentInfo
	}

	creds, err := s.credentials(ctx, session.LotID)
	if err != nil {
		return nil, err
	}
	return s.gateway.Cancel(ctx, *session.TransactionID, creds.ClientKey, creds.APIKey, reason)
}

// GetPaymentStatus inspects the gateway state without touching the session.
func (s *SessionService) GetPaymentStatus(ctx context.Context, sessionID int64) (*external.PaymentStatusData, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}
	if session.TransactionID == nil {
		return nil, errs.ErrNoPaymentInfo
	}

	creds, err := s.credentials(ctx, session.LotID)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetStatus(ctx, *session.TransactionID, creds.ClientKey, creds.APIKey)
}

func (s *SessionService) ListOpen(ctx context.Context, lotID int64) ([]models.ParkingSession, error) {
	return s.sessions.ListOpenByLot(ctx, lotID)
}

func (s *SessionService) CurrentByPlate(ctx context.Context, plate string, lotID int64) (*models.ParkingSession, error) {
	session, err := s.sessions.GetOpenByPlate(ctx, plate, lotID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.ErrSessionNotFound
	}
	return session, nil
}

// createPaymentRequest issues a new payment request at the gateway and
// records it on the session. TransactionCount only ever goes up; it is the
// guard against a stale transaction id being mistaken for the live one.
func (s *SessionService) createPaymentRequest(ctx context.Context, session *models.ParkingSession, amount int64, creds *models.LotCredentials) error {
	orderCode, err := newOrderCode()
	if err != nil {
		return fmt.Errorf("failed to generate order code: %w", err)
	}

	params := external.CreatePaymentParams{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: fmt.Sprintf("Parking fee %s", session.Plate),
	}
	params.Signature = external.SignCreateRequest(creds.ChecksumKey, params)

	result, err := s.gateway.CreatePayment(ctx, params, creds.ClientKey, creds.APIKey)
	if err != nil {
		return err
	}

	raw := string(result.Raw)
	session.TransactionID = &result.OrderCode
	session.PaymentInformation = &raw
	session.TransactionCount++
	session.PaymentStatus = models.PaymentPending

	s.publish(ctx, models.EventPaymentRequested, models.PaymentRequestedEvent{
		SessionID:        session.ID,
		TransactionID:    result.OrderCode,
		Amount:           amount,
		TransactionCount: session.TransactionCount,
		Timestamp:        s.now(),
	})
	return nil
}

func (s *SessionService) credentials(ctx context.Context, lotID int64) (*models.LotCredentials, error) {
	creds, err := s.lots.Credentials(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lot credentials: %w", err)
	}
	if creds == nil {
		return nil, fmt.Errorf("lot %d has no payment credentials configured", lotID)
	}
	return creds, nil
}

// currentFee computes the live cost of the stay. A session with no bound
// schedule is free of charge until one is resolved.
func (s *SessionService) currentFee(ctx context.Context, session *models.ParkingSession, at time.Time) (int64, error) {
	if session.ScheduleID == nil {
		return 0, nil
	}
	return s.schedules.CalculateFee(ctx, *session.ScheduleID, session.VehicleType, session.EntryTime, at)
}

// uploadCapture stores one gate image. Best-effort: on any failure the URL
// degrades to empty and the operation continues.
func (s *SessionService) uploadCapture(ctx context.Context, cap *models.Capture, plate, kind string) string {
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

func (s *SessionService) publish(ctx context.Context, subject string, event interface{}) {
	if s.nats == nil {
		return
	}
	if err := s.nats.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

func (s *SessionService) archive(ctx context.Context, doc search.SessionDocument) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, doc); err != nil {
		logger.WithContext(ctx).Error("Failed to index session history",
			"error", err,
			"session_id", doc.SessionID)
	}
}

// SearchHistory queries the finished-session archive.
func (s *SessionService) SearchHistory(ctx context.Context, plate string, lotID int64, from, to time.Time, limit int) ([]search.SessionDocument, error) {
	if s.index == nil {
		return nil, fmt.Errorf("session history search is not configured")
	}
	return s.index.Search(ctx, plate, lotID, from, to, limit)
}

// newOrderCode draws a cryptographically random positive 63-bit integer. The
// gateway uses it as an idempotency/order key, so collisions must be
// negligible across all lots.
func newOrderCode() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	code := int64(binary.BigEndian.Uint64(b[:]) & (1<<63 - 1))
	if code == 0 {
		code = 1
	}
	return code, nil
}
