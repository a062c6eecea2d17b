package repository

import (
	"parkly/internal/database"
)

type Repositories struct {
	Sessions      *SessionRepository
	GuestSessions *GuestSessionRepository
	Schedules     *ScheduleRepository
	Lots          *LotRepository
	Vehicles      *VehicleRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Sessions:      NewSessionRepository(db),
		GuestSessions: NewGuestSessionRepository(db),
		Schedules:     NewScheduleRepository(db),
		Lots:          NewLotRepository(db),
		Vehicles:      NewVehicleRepository(db),
	}
}
