package models

import (
	"time"
)

// ParkingSession represents one physical stay of a vehicle in a lot.
type ParkingSession struct {
	ID              int64          `json:"id" db:"id"`
	LotID           int64          `json:"lot_id" db:"lot_id"`
	Plate           string         `json:"plate" db:"plate"`
	VehicleID       *int64         `json:"vehicle_id" db:"vehicle_id"`
	DriverID        *int64         `json:"driver_id" db:"driver_id"`
	CheckInStaffID  int64          `json:"check_in_staff_id" db:"check_in_staff_id"`
	CheckOutStaffID *int64         `json:"check_out_staff_id" db:"check_out_staff_id"`
	VehicleType     VehicleType    `json:"vehicle_type" db:"vehicle_type"`
	ScheduleID      *int64         `json:"schedule_id" db:"schedule_id"`
	EntryTime       time.Time      `json:"entry_time" db:"entry_time"`
	CheckOutTime    *time.Time     `json:"check_out_time" db:"check_out_time"`
	ExitTime        *time.Time     `json:"exit_time" db:"exit_time"`
	Cost            int64          `json:"cost" db:"cost"`
	PaymentMethod   PaymentMethod  `json:"payment_method" db:"payment_method"`
	PaymentStatus   PaymentStatus  `json:"payment_status" db:"payment_status"`
	// TransactionID is the order code of the latest payment request issued at
	// the gateway. It changes on every re-issuance.
	TransactionID *int64 `json:"transaction_id" db:"transaction_id"`
	// PaymentInformation holds the gateway's last creation response verbatim.
	PaymentInformation *string `json:"payment_information" db:"payment_information"`
	// TransactionCount strictly increases with every payment request created
	// for this session and is never reset. It guards against a stale
	// transaction id being treated as current.
	TransactionCount int           `json:"transaction_count" db:"transaction_count"`
	Status           SessionStatus `json:"status" db:"status"`
	EntryFrontURL    string        `json:"entry_front_url" db:"entry_front_url"`
	EntryBackURL     string        `json:"entry_back_url" db:"entry_back_url"`
	ExitFrontURL     string        `json:"exit_front_url" db:"exit_front_url"`
	ExitBackURL      string        `json:"exit_back_url" db:"exit_back_url"`
	// Version backs optimistic concurrency in the sessions repository. The
	// reconciliation poll and the webhook handler can race on the same row.
	Version   int64     `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GuestParkingSession is the reduced session variant for plates with no
// registered vehicle. Cash only, no payment reconciliation.
type GuestParkingSession struct {
	ID              int64         `json:"id" db:"id"`
	LotID           int64         `json:"lot_id" db:"lot_id"`
	Plate           string        `json:"plate" db:"plate"`
	CheckInStaffID  int64         `json:"check_in_staff_id" db:"check_in_staff_id"`
	CheckOutStaffID *int64        `json:"check_out_staff_id" db:"check_out_staff_id"`
	VehicleType     VehicleType   `json:"vehicle_type" db:"vehicle_type"`
	ScheduleID      *int64        `json:"schedule_id" db:"schedule_id"`
	EntryTime       time.Time     `json:"entry_time" db:"entry_time"`
	ExitTime        *time.Time    `json:"exit_time" db:"exit_time"`
	Cost            int64         `json:"cost" db:"cost"`
	Status          SessionStatus `json:"status" db:"status"`
	EntryFrontURL   string        `json:"entry_front_url" db:"entry_front_url"`
	EntryBackURL    string        `json:"entry_back_url" db:"entry_back_url"`
	ExitFrontURL    string        `json:"exit_front_url" db:"exit_front_url"`
	ExitBackURL     string        `json:"exit_back_url" db:"exit_back_url"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// ParkingFeeSchedule is a time-windowed pricing rule for one lot and vehicle
// type. Sessions bind a schedule id at check-in and keep it for the whole
// stay, so editing a schedule never changes an in-progress session's rule.
type ParkingFeeSchedule struct {
	ID          int64       `json:"id" db:"id"`
	LotID       int64       `json:"lot_id" db:"lot_id"`
	VehicleType VehicleType `json:"vehicle_type" db:"vehicle_type"`
	// Weekdays is a bitmask of applicable days with Monday as bit 0. The
	// platform's Sunday-first weekday enumeration is remapped before matching.
	Weekdays    int   `json:"weekdays" db:"weekdays"`
	StartMinute int   `json:"start_minute" db:"start_minute"`
	EndMinute   int   `json:"end_minute" db:"end_minute"`
	InitialFee  int64 `json:"initial_fee" db:"initial_fee"`
	// AdditionalFee is charged per whole hour of the remainder
	// elapsed % BlockMinutes. See FeeScheduleService.CalculateFee.
	AdditionalFee int64     `json:"additional_fee" db:"additional_fee"`
	BlockMinutes  int       `json:"block_minutes" db:"block_minutes"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// AppliesAt reports whether the schedule's weekday set and minute-of-day
// window cover the given instant.
func (s *ParkingFeeSchedule) AppliesAt(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	if minutes < s.StartMinute || minutes > s.EndMinute {
		return false
	}
	return s.Weekdays&(1<<uint(WeekdayIndex(t))) != 0
}

// WeekdayIndex maps Go's Sunday-first time.Weekday onto the Monday-first 0-6
// index fee schedules are stored with.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParkingLot is the slice of the lot record the session engine needs.
type ParkingLot struct {
	ID            int64     `json:"id" db:"id"`
	OwnerID       int64     `json:"owner_id" db:"owner_id"`
	Name          string    `json:"name" db:"name"`
	Address       string    `json:"address" db:"address"`
	WhitelistOnly bool      `json:"whitelist_only" db:"whitelist_only"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// LotCredentials are the lot owner's payment gateway secrets. Their absence is
// a configuration error, never a session error.
type LotCredentials struct {
	LotID       int64  `db:"lot_id"`
	ClientKey   string `db:"client_key"`
	APIKey      string `db:"api_key"`
	ChecksumKey string `db:"checksum_key"`
}

// Vehicle is the registered-vehicle record consulted at check-in.
type Vehicle struct {
	ID              int64       `json:"id" db:"id"`
	OwnerID         int64       `json:"owner_id" db:"owner_id"`
	CurrentHolderID *int64      `json:"current_holder_id" db:"current_holder_id"`
	Plate           string      `json:"plate" db:"plate"`
	Type            VehicleType `json:"type" db:"vehicle_type"`
	Shared          bool        `json:"shared" db:"shared"`
}

// Driver returns who is currently responsible for the vehicle: the holder
// while it is shared out, otherwise the owner.
func (v *Vehicle) Driver() int64 {
	if v.Shared && v.CurrentHolderID != nil {
		return *v.CurrentHolderID
	}
	return v.OwnerID
}
