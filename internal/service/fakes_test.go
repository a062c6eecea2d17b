package service

import (
	"context"
	"fmt"
	"time"

	errs "parkly/internal/errors"
	"parkly/internal/external"
	"parkly/internal/models"
	"parkly/internal/search"
)

// In-memory fakes for the store and collaborator interfaces. They keep just
// enough behavior for the engines: (nil, nil) on absent rows, version bump
// on update, programmable gateway responses.

type fakeSessionStore struct {
	sessions map[int64]*models.ParkingSession
	nextID   int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]*models.ParkingSession)}
}

func (f *fakeSessionStore) Create(_ context.Context, s *models.ParkingSession) error {
	for _, existing := range f.sessions {
		if existing.Plate == s.Plate && existing.LotID == s.LotID && existing.Status == models.SessionParking {
			return errs.ErrSessionAlreadyOpen
		}
	}
	f.nextID++
	s.ID = f.nextID
	s.Version = 1
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id int64) (*models.ParkingSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetOpenByPlate(_ context.Context, plate string, lotID int64) (*models.ParkingSession, error) {
	for _, s := range f.sessions {
		if s.Plate == plate && s.LotID == lotID && s.Status != models.SessionFinished {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) GetByTransactionID(_ context.Context, transactionID int64) (*models.ParkingSession, error) {
	for _, s := range f.sessions {
		if s.TransactionID != nil && *s.TransactionID == transactionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionStore) Update(_ context.Context, s *models.ParkingSession) error {
	stored, ok := f.sessions[s.ID]
	if !ok {
		return fmt.Errorf("session %d not found", s.ID)
	}
	if stored.Version != s.Version {
		return errs.ErrVersionConflict
	}
	cp := *s
	cp.Version++
	f.sessions[s.ID] = &cp
	s.Version = cp.Version
	return nil
}

func (f *fakeSessionStore) ListOpenByLot(_ context.Context, lotID int64) ([]models.ParkingSession, error) {
	var out []models.ParkingSession
	for _, s := range f.sessions {
		if s.LotID == lotID && s.Status != models.SessionFinished {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ListPendingOlderThan(_ context.Context, cutoff time.Time) ([]models.ParkingSession, error) {
	var out []models.ParkingSession
	for _, s := range f.sessions {
		if s.PaymentStatus == models.PaymentPending && s.Status != models.SessionFinished && s.UpdatedAt.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeGuestStore struct {
	sessions map[int64]*models.GuestParkingSession
	nextID   int64
}

func newFakeGuestStore() *fakeGuestStore {
	return &fakeGuestStore{sessions: make(map[int64]*models.GuestParkingSession)}
}

func (f *fakeGuestStore) Create(_ context.Context, s *models.GuestParkingSession) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeGuestStore) GetOpenByPlate(_ context.Context, plate string, lotID int64) (*models.GuestParkingSession, error) {
	for _, s := range f.sessions {
		if s.Plate == plate && s.LotID == lotID && s.Status != models.SessionFinished {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGuestStore) Update(_ context.Context, s *models.GuestParkingSession) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return fmt.Errorf("guest session %d not found", s.ID)
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeGuestStore) ListOpenByLot(_ context.Context, lotID int64) ([]models.GuestParkingSession, error) {
	var out []models.GuestParkingSession
	for _, s := range f.sessions {
		if s.LotID == lotID && s.Status != models.SessionFinished {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeScheduleStore struct {
	schedules map[int64]*models.ParkingFeeSchedule
	nextID    int64
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{schedules: make(map[int64]*models.ParkingFeeSchedule)}
}

func (f *fakeScheduleStore) add(s models.ParkingFeeSchedule) int64 {
	f.nextID++
	s.ID = f.nextID
	f.schedules[s.ID] = &s
	return s.ID
}

func (f *fakeScheduleStore) Create(_ context.Context, s *models.ParkingFeeSchedule) error {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

func (f *fakeScheduleStore) GetByID(_ context.Context, id int64) (*models.ParkingFeeSchedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleStore) ListActive(_ context.Context, lotID int64, vehicleType models.VehicleType) ([]models.ParkingFeeSchedule, error) {
	var out []models.ParkingFeeSchedule
	for id := int64(1); id <= f.nextID; id++ {
		s, ok := f.schedules[id]
		if ok && s.LotID == lotID && s.VehicleType == vehicleType && s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) ListByLot(_ context.Context, lotID int64) ([]models.ParkingFeeSchedule, error) {
	var out []models.ParkingFeeSchedule
	for id := int64(1); id <= f.nextID; id++ {
		if s, ok := f.schedules[id]; ok && s.LotID == lotID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) Update(_ context.Context, s *models.ParkingFeeSchedule) error {
	if _, ok := f.schedules[s.ID]; !ok {
		return errs.ErrScheduleNotFound
	}
	cp := *s
	f.schedules[s.ID] = &cp
	return nil
}

type fakeLotStore struct {
	lots        map[int64]*models.ParkingLot
	credentials map[int64]*models.LotCredentials
	whitelist   map[string]bool
}

func newFakeLotStore() *fakeLotStore {
	return &fakeLotStore{
		lots:        make(map[int64]*models.ParkingLot),
		credentials: make(map[int64]*models.LotCredentials),
		whitelist:   make(map[string]bool),
	}
}

func (f *fakeLotStore) GetByID(_ context.Context, id int64) (*models.ParkingLot, error) {
	lot, ok := f.lots[id]
	if !ok {
		return nil, nil
	}
	cp := *lot
	return &cp, nil
}

func (f *fakeLotStore) Credentials(_ context.Context, lotID int64) (*models.LotCredentials, error) {
	creds, ok := f.credentials[lotID]
	if !ok {
		return nil, nil
	}
	cp := *creds
	return &cp, nil
}

func (f *fakeLotStore) IsWhitelisted(_ context.Context, lotID, clientID int64) (bool, error) {
	return f.whitelist[fmt.Sprintf("%d:%d", lotID, clientID)], nil
}

type fakeVehicleDirectory struct {
	vehicles map[string]*models.Vehicle
}

func newFakeVehicleDirectory() *fakeVehicleDirectory {
	return &fakeVehicleDirectory{vehicles: make(map[string]*models.Vehicle)}
}

func (f *fakeVehicleDirectory) FindByPlate(_ context.Context, plate string) (*models.Vehicle, error) {
	v, ok := f.vehicles[plate]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// fakeGateway answers with programmable status data and records every
// payment request it was asked to create.
type fakeGateway struct {
	created   []external.CreatePaymentParams
	status    map[int64]*external.PaymentStatusData
	cancelled []int64
	createErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: make(map[int64]*external.PaymentStatusData)}
}

func (f *fakeGateway) CreatePayment(_ context.Context, params external.CreatePaymentParams, _, _ string) (*external.PaymentCreationResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	raw := fmt.Sprintf(`{"orderCode":%d,"amount":%d,"checkoutUrl":"https://pay.example/%d"}`,
		params.OrderCode, params.Amount, params.OrderCode)
	return &external.PaymentCreationResult{
		OrderCode: params.OrderCode,
		Raw:       []byte(raw),
	}, nil
}

func (f *fakeGateway) GetStatus(_ context.Context, orderCode int64, _, _ string) (*external.PaymentStatusData, error) {
	if s, ok := f.status[orderCode]; ok {
		return s, nil
	}
	return &external.PaymentStatusData{OrderCode: orderCode, Status: models.GatewayPending}, nil
}

func (f *fakeGateway) Cancel(_ context.Context, orderCode int64, _, _, _ string) (*external.PaymentStatusData, error) {
	f.cancelled = append(f.cancelled, orderCode)
	return &external.PaymentStatusData{OrderCode: orderCode, Status: models.GatewayCancelled}, nil
}

type fakePublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	subject string
	data    interface{}
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.events = append(f.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) subjects() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.subject)
	}
	return out
}

type fakeFileStore struct {
	uploads int
}

func (f *fakeFileStore) Upload(_ context.Context, _ []byte, subfolder, name string, _ map[string]string) (string, error) {
	f.uploads++
	return fmt.Sprintf("https://captures.example/%s/%s", subfolder, name), nil
}

type fakeIndexer struct {
	docs []search.SessionDocument
}

func (f *fakeIndexer) Index(_ context.Context, doc search.SessionDocument) error {
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeIndexer) Search(_ context.Context, plate string, lotID int64, _, _ time.Time, _ int) ([]search.SessionDocument, error) {
	var out []search.SessionDocument
	for _, d := range f.docs {
		if (plate == "" || d.Plate == plate) && (lotID == 0 || d.LotID == lotID) {
			out = append(out, d)
		}
	}
	return out, nil
}

// fixedClock returns a Clock pinned at t.
func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
