package service

import (
	"context"
	"testing"
	"time"

	errs "parkly/internal/errors"
	"parkly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guestFixture struct {
	svc       *GuestSessionService
	store     *fakeGuestStore
	schedules *fakeScheduleStore
	lots      *fakeLotStore
	events    *fakePublisher
	index     *fakeIndexer
	now       time.Time
}

func newGuestFixture(t *testing.T) *guestFixture {
	t.Helper()

	fx := &guestFixture{
		store:     newFakeGuestStore(),
		schedules: newFakeScheduleStore(),
		lots:      newFakeLotStore(),
		events:    &fakePublisher{},
		index:     &fakeIndexer{},
		now:       monday,
	}

	fx.lots.lots[1] = &models.ParkingLot{ID: 1, OwnerID: 100, Name: "Central"}
	fx.schedules.add(models.ParkingFeeSchedule{
		LotID:         1,
		VehicleType:   models.VehicleMotorbike,
		Weekdays:      allWeek,
		EndMinute:     1439,
		InitialFee:    3000,
		AdditionalFee: 2000,
		BlockMinutes:  180,
		Active:        true,
	})

	clock := func() time.Time { return fx.now }
	scheduleSvc := NewFeeScheduleService(fx.schedules, fx.lots, clock)
	fx.svc = NewGuestSessionService(fx.store, scheduleSvc, fx.lots, nil, fx.events, fx.index, clock)
	return fx
}

func (fx *guestFixture) checkIn(t *testing.T) *models.GuestParkingSession {
	t.Helper()
	session, err := fx.svc.CheckIn(context.Background(), &models.GuestCheckInRequest{
		LotID:       1,
		Plate:       "GUEST-1",
		VehicleType: "Motorbike",
	}, testStaff)
	require.NoError(t, err)
	return session
}

func TestGuestCheckInBindsSchedule(t *testing.T) {
	fx := newGuestFixture(t)

	session := fx.checkIn(t)
	assert.Equal(t, models.SessionParking, session.Status)
	require.NotNil(t, session.ScheduleID)
	assert.Equal(t, testStaff, session.CheckInStaffID)
	assert.Contains(t, fx.events.subjects(), models.EventGuestSessionOpened)
}

func TestGuestCheckInRejectedOnWhitelistOnlyLot(t *testing.T) {
	fx := newGuestFixture(t)
	fx.lots.lots[2] = &models.ParkingLot{ID: 2, OwnerID: 100, WhitelistOnly: true}

	_, err := fx.svc.CheckIn(context.Background(), &models.GuestCheckInRequest{
		LotID:       2,
		Plate:       "GUEST-1",
		VehicleType: "Motorbike",
	}, testStaff)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestGuestCheckInRejectsUnknownVehicleType(t *testing.T) {
	fx := newGuestFixture(t)

	_, err := fx.svc.CheckIn(context.Background(), &models.GuestCheckInRequest{
		LotID:       1,
		Plate:       "GUEST-1",
		VehicleType: "Spaceship",
	}, testStaff)
	assert.Error(t, err)
}

func TestGuestFinishComputesCashAmount(t *testing.T) {
	fx := newGuestFixture(t)
	fx.checkIn(t)

	// 250 minutes: 250 % 180 = 70, one extra whole hour on top of the
	// initial fee.
	fx.now = fx.now.Add(250 * time.Minute)

	session, err := fx.svc.Finish(context.Background(), &models.FinishRequest{LotID: 1, Plate: "GUEST-1"}, testStaff)
	require.NoError(t, err)

	assert.Equal(t, models.SessionFinished, session.Status)
	assert.Equal(t, int64(5000), session.Cost)
	require.NotNil(t, session.ExitTime)
	assert.Contains(t, fx.events.subjects(), models.EventGuestSessionClosed)

	require.Len(t, fx.index.docs, 1)
	assert.True(t, fx.index.docs[0].Guest)
}

func TestGuestFinishUnknownPlate(t *testing.T) {
	fx := newGuestFixture(t)

	_, err := fx.svc.Finish(context.Background(), &models.FinishRequest{LotID: 1, Plate: "NO-SUCH"}, testStaff)
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestGuestFinishWithoutScheduleIsFree(t *testing.T) {
	fx := newGuestFixture(t)

	// No schedule exists for trucks, so the session binds none and the stay
	// costs nothing.
	_, err := fx.svc.CheckIn(context.Background(), &models.GuestCheckInRequest{
		LotID:       1,
		Plate:       "GUEST-2",
		VehicleType: "Truck",
	}, testStaff)
	require.NoError(t, err)

	fx.now = fx.now.Add(3 * time.Hour)

	session, err := fx.svc.Finish(context.Background(), &models.FinishRequest{LotID: 1, Plate: "GUEST-2"}, testStaff)
	require.NoError(t, err)
	assert.Zero(t, session.Cost)
}
