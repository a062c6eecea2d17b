package models

import "encoding/json"

// Capture carries one gate camera frame, base64-encoded by the caller.
// Missing captures are tolerated everywhere; the stored URL degrades to "".
type Capture struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// CheckInRequest - staff opens a session for an arriving vehicle
type CheckInRequest struct {
	LotID       int64    `json:"lot_id" binding:"required"`
	Plate       string   `json:"plate" binding:"required"`
	VehicleType string   `json:"vehicle_type,omitempty"`
	FrontCap    *Capture `json:"front_capture,omitempty"`
	BackCap     *Capture `json:"back_capture,omitempty"`
}

// CheckInResponse - id of the opened session
type CheckInResponse struct {
	ID int64 `json:"id"`
}

// CheckOutRequest - driver signals intent to leave and picks a payment method
type CheckOutRequest struct {
	SessionID     int64  `json:"session_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// FinishRequest - staff confirms the physical exit of a vehicle
type FinishRequest struct {
	LotID    int64    `json:"lot_id" binding:"required"`
	Plate    string   `json:"plate" binding:"required"`
	FrontCap *Capture `json:"front_capture,omitempty"`
	BackCap  *Capture `json:"back_capture,omitempty"`
}

// GuestCheckInRequest - staff opens a guest session for an unregistered plate
type GuestCheckInRequest struct {
	LotID       int64    `json:"lot_id" binding:"required"`
	Plate       string   `json:"plate" binding:"required"`
	VehicleType string   `json:"vehicle_type" binding:"required"`
	FrontCap    *Capture `json:"front_capture,omitempty"`
	BackCap     *Capture `json:"back_capture,omitempty"`
}

// CreateScheduleRequest - lot owner creates a pricing rule
type CreateScheduleRequest struct {
	LotID         int64  `json:"lot_id" binding:"required"`
	VehicleType   string `json:"vehicle_type" binding:"required"`
	Weekdays      int    `json:"weekdays" binding:"required"`
	StartMinute   int    `json:"start_minute"`
	EndMinute     int    `json:"end_minute" binding:"required"`
	InitialFee    int64  `json:"initial_fee"`
	AdditionalFee int64  `json:"additional_fee"`
	BlockMinutes  int    `json:"block_minutes"`
	Active        bool   `json:"active"`
}

// UpdateScheduleRequest - lot owner edits a pricing rule
type UpdateScheduleRequest struct {
	Weekdays      *int   `json:"weekdays,omitempty"`
	StartMinute   *int   `json:"start_minute,omitempty"`
	EndMinute     *int   `json:"end_minute,omitempty"`
	InitialFee    *int64 `json:"initial_fee,omitempty"`
	AdditionalFee *int64 `json:"additional_fee,omitempty"`
	BlockMinutes  *int   `json:"block_minutes,omitempty"`
	Active        *bool  `json:"active,omitempty"`
}

// CancelPaymentRequest - explicit cancellation of an outstanding payment request
type CancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// PaymentWebhook is the gateway's asynchronous confirmation payload. Delivered
// at least once, possibly out of order relative to status polling.
type PaymentWebhook struct {
	Success   bool               `json:"success"`
	Signature string             `json:"signature"`
	Data      PaymentWebhookData `json:"data"`
}

type PaymentWebhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// PaymentInfoResponse wraps the stored or re-issued gateway payload. A nil
// Payment with Settled=true means the gateway already reports the request as
// paid and there is nothing left to show.
type PaymentInfoResponse struct {
	Settled bool            `json:"settled"`
	Payment json.RawMessage `json:"payment,omitempty"`
}
