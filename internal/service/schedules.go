package service

import (
	"context"
	"fmt"
	"time"

	errs "parkly/internal/errors"
	"parkly/internal/models"
)

// FeeScheduleService resolves which pricing rule applies at an instant and
// computes the fee for an elapsed interval under a fixed rule.
type FeeScheduleService struct {
	schedules ScheduleStore
	lots      LotStore
	now       Clock
}

func NewFeeScheduleService(schedules ScheduleStore, lots LotStore, now Clock) *FeeScheduleService {
	if now == nil {
		now = time.Now
	}
	return &FeeScheduleService{
		schedules: schedules,
		lots:      lots,
		now:       now,
	}
}

// ResolveActiveSchedule returns the id of the first active schedule for the
// lot and vehicle type whose weekday set and minute window cover the instant,
// or nil when none matches. A nil result means the fee cannot be determined
// yet and the session stays free of charge until resolved.
func (s *FeeScheduleService) ResolveActiveSchedule(ctx context.Context, lotID int64, vehicleType models.VehicleType, at time.Time) (*int64, error) {
	schedules, err := s.schedules.ListActive(ctx, lotID, vehicleType)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	for i := range schedules {
		if schedules[i].AppliesAt(at) {
			id := schedules[i].ID
			return &id, nil
		}
	}
	return nil, nil
}

// CalculateFee computes the cost of a stay under the bound schedule. The
// elapsed interval is a plain wall-clock difference; stays that span
// midnight or leave the schedule's window keep the rule bound at check-in.
//
// The additional charge keys off the remainder elapsed % blockMinutes, not
// off the number of elapsed blocks, so a longer stay can carry a smaller
// remainder than a shorter one. Billing relies on this exact shape.
func (s *FeeScheduleService) CalculateFee(ctx context.Context, scheduleID int64, vehicleType models.VehicleType, start, end time.Time) (int64, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return 0, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil || schedule.VehicleType != vehicleType {
		return 0, errs.ErrScheduleNotFound
	}

	elapsedMinutes := int64(end.Sub(start) / time.Minute)
	if elapsedMinutes < 0 {
		elapsedMinutes = 0
	}

	var additionalMinutes int64
	if schedule.BlockMinutes > 0 {
		additionalMinutes = elapsedMinutes % int64(schedule.BlockMinutes)
	}

	return schedule.InitialFee + (additionalMinutes/60)*schedule.AdditionalFee, nil
}

// Create adds a pricing rule. Only the lot's owner may manage its schedules.
func (s *FeeScheduleService) Create(ctx context.Context, ownerID int64, req *models.CreateScheduleRequest) (*models.ParkingFeeSchedule, error) {
	lot, err := s.lots.GetByID(ctx, req.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	if lot == nil {
		return nil, errs.ErrLotNotFound
	}
	if lot.OwnerID != ownerID {
		return nil, errs.ErrUnauthorized
	}

	vehicleType, err := models.ParseVehicleType(req.VehicleType)
	if err != nil {
		return nil, err
	}

	schedule := &models.ParkingFeeSchedule{
		LotID:         req.LotID,
		VehicleType:   vehicleType,
		Weekdays:      req.Weekdays,
		StartMinute:   req.StartMinute,
		EndMinute:     req.EndMinute,
		InitialFee:    req.InitialFee,
		AdditionalFee: req.AdditionalFee,
		BlockMinutes:  req.BlockMinutes,
		Active:        req.Active,
	}

	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return schedule, nil
}

// Update edits a pricing rule copy-on-write: the old row is deactivated and a
// patched replacement inserted under a new id. Open sessions hold the old id,
// so an edit never changes the parameters of a rule already bound to a stay.
func (s *FeeScheduleService) Update(ctx context.Context, ownerID, scheduleID int64, req *models.UpdateScheduleRequest) (*models.ParkingFeeSchedule, error) {
	old, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if old == nil {
		return nil, errs.ErrScheduleNotFound
	}

	lot, err := s.lots.GetByID(ctx, old.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	if lot == nil || lot.OwnerID != ownerID {
		return nil, errs.ErrUnauthorized
	}

	replacement := *old
	replacement.ID = 0
	if req.Weekdays != nil {
		replacement.Weekdays = *req.Weekdays
	}
	if req.StartMinute != nil {
		replacement.StartMinute = *req.StartMinute
	}
	if req.EndMinute != nil {
		replacement.EndMinute = *req.EndMinute
	}
	if req.InitialFee != nil {
		replacement.InitialFee = *req.InitialFee
	}
	if req.AdditionalFee != nil {
		replacement.AdditionalFee = *req.AdditionalFee
	}
	if req.BlockMinutes != nil {
		replacement.BlockMinutes = *req.BlockMinutes
	}
	if req.Active != nil {
		replacement.Active = *req.Active
	}

	old.Active = false
	if err := s.schedules.Update(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to deactivate schedule: %w", err)
	}
	if err := s.schedules.Create(ctx, &replacement); err != nil {
		return nil, fmt.Errorf("failed to create replacement schedule: %w", err)
	}
	return &replacement, nil
}

func (s *FeeScheduleService) ListByLot(ctx context.Context, lotID int64) ([]models.ParkingFeeSchedule, error) {
	return s.schedules.ListByLot(ctx, lotID)
}
