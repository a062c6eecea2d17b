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

// 2026-08-24 is a Monday.
var monday = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

const allWeek = 0x7F

func newScheduleFixture(t *testing.T) (*FeeScheduleService, *fakeScheduleStore, *fakeLotStore) {
	t.Helper()
	schedules := newFakeScheduleStore()
	lots := newFakeLotStore()
	lots.lots[1] = &models.ParkingLot{ID: 1, OwnerID: 100, Name: "Central"}
	svc := NewFeeScheduleService(schedules, lots, fixedClock(monday))
	return svc, schedules, lots
}

func TestCalculateFeeUsesRemainderOfBlock(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	id := schedules.add(models.ParkingFeeSchedule{
		LotID:         1,
		VehicleType:   models.VehicleCar,
		Weekdays:      allWeek,
		EndMinute:     1439,
		InitialFee:    10000,
		AdditionalFee: 5000,
		BlockMinutes:  60,
		Active:        true,
	})

	// With a 60-minute block the remainder never reaches a whole hour, so a
	// 90-minute stay and a 150-minute stay cost the same.
	fee90, err := svc.CalculateFee(context.Background(), id, models.VehicleCar, monday, monday.Add(90*time.Minute))
	require.NoError(t, err)
	fee150, err := svc.CalculateFee(context.Background(), id, models.VehicleCar, monday, monday.Add(150*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, int64(10000), fee90)
	assert.Equal(t, fee90, fee150)
}

func TestCalculateFeeChargesWholeHoursOfRemainder(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	id := schedules.add(models.ParkingFeeSchedule{
		LotID:         1,
		VehicleType:   models.VehicleCar,
		Weekdays:      allWeek,
		EndMinute:     1439,
		InitialFee:    10000,
		AdditionalFee: 5000,
		BlockMinutes:  180,
		Active:        true,
	})

	cases := []struct {
		minutes  int
		expected int64
	}{
		{0, 10000},
		{59, 10000},
		{60, 15000},   // remainder 60 -> one extra hour
		{150, 20000},  // remainder 150 -> two extra hours
		{180, 10000},  // remainder wraps to 0
		{200, 10000},  // remainder 20
		{250, 15000},  // remainder 70
	}

	for _, tc := range cases {
		fee, err := svc.CalculateFee(context.Background(), id, models.VehicleCar,
			monday, monday.Add(time.Duration(tc.minutes)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, tc.expected, fee, "stay of %d minutes", tc.minutes)
	}
}

func TestCalculateFeeZeroBlockSkipsAdditional(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	id := schedules.add(models.ParkingFeeSchedule{
		LotID:         1,
		VehicleType:   models.VehicleCar,
		Weekdays:      allWeek,
		EndMinute:     1439,
		InitialFee:    7000,
		AdditionalFee: 5000,
		BlockMinutes:  0,
		Active:        true,
	})

	fee, err := svc.CalculateFee(context.Background(), id, models.VehicleCar, monday, monday.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(7000), fee)
}

func TestCalculateFeeClampsNegativeElapsed(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	id := schedules.add(models.ParkingFeeSchedule{
		LotID:        1,
		VehicleType:  models.VehicleCar,
		Weekdays:     allWeek,
		EndMinute:    1439,
		InitialFee:   5000,
		BlockMinutes: 60,
		Active:       true,
	})

	fee, err := svc.CalculateFee(context.Background(), id, models.VehicleCar, monday, monday.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), fee)
}

func TestCalculateFeeRejectsVehicleTypeMismatch(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	id := schedules.add(models.ParkingFeeSchedule{
		LotID:       1,
		VehicleType: models.VehicleCar,
		Weekdays:    allWeek,
		EndMinute:   1439,
		Active:      true,
	})

	_, err := svc.CalculateFee(context.Background(), id, models.VehicleTruck, monday, monday.Add(time.Hour))
	assert.ErrorIs(t, err, errs.ErrScheduleNotFound)

	_, err = svc.CalculateFee(context.Background(), 999, models.VehicleCar, monday, monday.Add(time.Hour))
	assert.ErrorIs(t, err, errs.ErrScheduleNotFound)
}

func TestWeekdayIndexMondayFirst(t *testing.T) {
	// Walk a full week starting at the known Monday.
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		assert.Equal(t, i, models.WeekdayIndex(day), "%s", day.Weekday())
	}
}

func TestScheduleAppliesAtRespectsWindowAndWeekday(t *testing.T) {
	weekdaysOnly := models.ParkingFeeSchedule{
		Weekdays:    0x1F, // Monday through Friday
		StartMinute: 8 * 60,
		EndMinute:   18 * 60,
	}

	assert.True(t, weekdaysOnly.AppliesAt(monday))                            // Monday 10:00
	assert.False(t, weekdaysOnly.AppliesAt(monday.Add(12*time.Hour)))         // Monday 22:00, outside window
	assert.False(t, weekdaysOnly.AppliesAt(monday.AddDate(0, 0, 5)))          // Saturday
	assert.True(t, weekdaysOnly.AppliesAt(monday.AddDate(0, 0, 4)))           // Friday
	assert.True(t, weekdaysOnly.AppliesAt(time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)))
	assert.False(t, weekdaysOnly.AppliesAt(time.Date(2026, 8, 24, 7, 59, 0, 0, time.UTC)))
}

func TestResolveActiveSchedulePicksFirstMatch(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	schedules.add(models.ParkingFeeSchedule{
		LotID:       1,
		VehicleType: models.VehicleCar,
		Weekdays:    allWeek,
		StartMinute: 0,
		EndMinute:   8*60 - 1,
		Active:      true,
	})
	dayID := schedules.add(models.ParkingFeeSchedule{
		LotID:       1,
		VehicleType: models.VehicleCar,
		Weekdays:    allWeek,
		StartMinute: 8 * 60,
		EndMinute:   1439,
		Active:      true,
	})
	schedules.add(models.ParkingFeeSchedule{
		LotID:       1,
		VehicleType: models.VehicleTruck,
		Weekdays:    allWeek,
		StartMinute: 0,
		EndMinute:   1439,
		Active:      true,
	})

	id, err := svc.ResolveActiveSchedule(context.Background(), 1, models.VehicleCar, monday)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, dayID, *id)
}

func TestResolveActiveScheduleNoneMatches(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	schedules.add(models.ParkingFeeSchedule{
		LotID:       1,
		VehicleType: models.VehicleCar,
		Weekdays:    allWeek,
		EndMinute:   1439,
		Active:      false,
	})

	id, err := svc.ResolveActiveSchedule(context.Background(), 1, models.VehicleCar, monday)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestCreateScheduleRequiresLotOwner(t *testing.T) {
	svc, _, _ := newScheduleFixture(t)

	req := &models.CreateScheduleRequest{
		LotID:       1,
		VehicleType: "Car",
		Weekdays:    allWeek,
		EndMinute:   1439,
		Active:      true,
	}

	_, err := svc.Create(context.Background(), 999, req)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	schedule, err := svc.Create(context.Background(), 100, req)
	require.NoError(t, err)
	assert.NotZero(t, schedule.ID)
}

func TestUpdateSchedulePatchesOnlyProvidedFields(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	id := schedules.add(models.ParkingFeeSchedule{
		LotID:         1,
		VehicleType:   models.VehicleCar,
		Weekdays:      allWeek,
		EndMinute:     1439,
		InitialFee:    10000,
		AdditionalFee: 5000,
		BlockMinutes:  60,
		Active:        true,
	})

	newFee := int64(12000)
	updated, err := svc.Update(context.Background(), 100, id, &models.UpdateScheduleRequest{InitialFee: &newFee})
	require.NoError(t, err)

	assert.Equal(t, int64(12000), updated.InitialFee)
	assert.Equal(t, int64(5000), updated.AdditionalFee)
	assert.Equal(t, 60, updated.BlockMinutes)
	assert.True(t, updated.Active)
	assert.NotEqual(t, id, updated.ID, "an edit replaces the rule under a new id")
}

func TestBoundScheduleSurvivesEdits(t *testing.T) {
	svc, schedules, _ := newScheduleFixture(t)

	boundID := schedules.add(models.ParkingFeeSchedule{
		LotID:         1,
		VehicleType:   models.VehicleCar,
		Weekdays:      allWeek,
		EndMinute:     1439,
		InitialFee:    10000,
		AdditionalFee: 5000,
		BlockMinutes:  180,
		Active:        true,
	})

	// Owner raises prices mid-stay.
	newFee := int64(99999)
	updated, err := svc.Update(context.Background(), 100, boundID, &models.UpdateScheduleRequest{InitialFee: &newFee})
	require.NoError(t, err)

	// A stay that bound the old rule still pays the old price.
	fee, err := svc.CalculateFee(context.Background(), boundID, models.VehicleCar, monday, monday.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), fee)

	// New check-ins resolve the replacement.
	resolved, err := svc.ResolveActiveSchedule(context.Background(), 1, models.VehicleCar, monday)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, updated.ID, *resolved)
}
