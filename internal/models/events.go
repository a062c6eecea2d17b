package models

import "time"

// NATS Event Types
const (
	EventSessionCheckedIn   = "parking.session.checked_in"
	EventSessionCheckedOut  = "parking.session.checked_out"
	EventSessionFinished    = "parking.session.finished"
	EventPaymentRequested   = "parking.payment.requested"
	EventPaymentConfirmed   = "parking.payment.confirmed"
	EventPaymentFailed      = "parking.payment.failed"
	EventGuestSessionOpened = "parking.guest.checked_in"
	EventGuestSessionClosed = "parking.guest.finished"
)

// SessionCheckedInEvent is published when a session is opened at the gate.
type SessionCheckedInEvent struct {
	SessionID int64     `json:"session_id"`
	LotID     int64     `json:"lot_id"`
	Plate     string    `json:"plate"`
	DriverID  *int64    `json:"driver_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionCheckedOutEvent is published when the driver signals departure.
type SessionCheckedOutEvent struct {
	SessionID     int64     `json:"session_id"`
	LotID         int64     `json:"lot_id"`
	Cost          int64     `json:"cost"`
	PaymentMethod string    `json:"payment_method"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionFinishedEvent is published when staff confirm the physical exit.
type SessionFinishedEvent struct {
	SessionID int64     `json:"session_id"`
	LotID     int64     `json:"lot_id"`
	Plate     string    `json:"plate"`
	Cost      int64     `json:"cost"`
	Forced    bool      `json:"forced"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentRequestedEvent is published each time a payment request is issued,
// including re-issuances after a terminal gateway failure.
type PaymentRequestedEvent struct {
	SessionID        int64     `json:"session_id"`
	TransactionID    int64     `json:"transaction_id"`
	Amount           int64     `json:"amount"`
	TransactionCount int       `json:"transaction_count"`
	Timestamp        time.Time `json:"timestamp"`
}

// PaymentConfirmedEvent is published when the gateway webhook confirms payment.
type PaymentConfirmedEvent struct {
	SessionID     int64     `json:"session_id"`
	TransactionID int64     `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentFailedEvent is published when the gateway reports a failed outcome.
type PaymentFailedEvent struct {
	SessionID     int64     `json:"session_id"`
	TransactionID int64     `json:"transaction_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}
