package service

// Services bundles the engines for injection into handlers and jobs.
type Services struct {
	Sessions  *SessionService
	Guests    *GuestSessionService
	Schedules *FeeScheduleService
}

// Deps carries everything the engines need. Optional collaborators (Storage,
// Events, Index) may be nil; the engines degrade gracefully without them.
type Deps struct {
	Sessions      SessionStore
	GuestSessions GuestSessionStore
	Schedules     ScheduleStore
	Lots          LotStore
	Whitelist     WhitelistChecker
	Vehicles      VehicleDirectory
	Storage       FileStore
	Gateway       PaymentGateway
	Events        EventPublisher
	Index         SessionIndexer
	Now           Clock
}

func NewServices(d Deps) *Services {
	schedules := NewFeeScheduleService(d.Schedules, d.Lots, d.Now)
	return &Services{
		Sessions: NewSessionService(
			d.Sessions, schedules, d.Lots, d.Vehicles, d.Whitelist,
			d.Storage, d.Gateway, d.Events, d.Index, d.Now,
		),
		Guests: NewGuestSessionService(
			d.GuestSessions, schedules, d.Lots, d.Storage, d.Events, d.Index, d.Now,
		),
		Schedules: schedules,
	}
}
