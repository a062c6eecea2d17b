package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SessionStatus is the lifecycle state of a parking session.
// Transitions only move forward: Parking -> CheckedOut -> Finished,
// or Parking -> Finished on a staff force-finish.
type SessionStatus string

const (
	SessionParking    SessionStatus = "Parking"
	SessionCheckedOut SessionStatus = "CheckedOut"
	SessionFinished   SessionStatus = "Finished"
)

func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(s) {
	case SessionParking, SessionCheckedOut, SessionFinished:
		return SessionStatus(s), nil
	}
	return "", fmt.Errorf("unknown session status %q", s)
}

func (s SessionStatus) Value() (driver.Value, error) { return string(s), nil }

func (s *SessionStatus) Scan(src interface{}) error {
	str, ok := src.(string)
	if !ok {
		if b, okb := src.([]byte); okb {
			str = string(b)
		} else {
			return fmt.Errorf("cannot scan %T into SessionStatus", src)
		}
	}
	parsed, err := ParseSessionStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *SessionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSessionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentStatus is the payment axis of a session, independent of SessionStatus.
// NotPaid -> Pending -> Paid; a failed gateway outcome moves Pending back to
// NotPaid. Paid is terminal for a given transaction id.
type PaymentStatus string

const (
	PaymentNotPaid PaymentStatus = "NotPaid"
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentNotPaid, PaymentPending, PaymentPaid:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

func (s PaymentStatus) Value() (driver.Value, error) { return string(s), nil }

func (s *PaymentStatus) Scan(src interface{}) error {
	str, ok := src.(string)
	if !ok {
		if b, okb := src.([]byte); okb {
			str = string(b)
		} else {
			return fmt.Errorf("cannot scan %T into PaymentStatus", src)
		}
	}
	parsed, err := ParsePaymentStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePaymentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentMethod is how a session is settled. Empty means not chosen yet.
type PaymentMethod string

const (
	MethodUnset PaymentMethod = ""
	MethodCash  PaymentMethod = "Cash"
	MethodBank  PaymentMethod = "Bank"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodUnset, MethodCash, MethodBank:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

func (m PaymentMethod) Value() (driver.Value, error) { return string(m), nil }

func (m *PaymentMethod) Scan(src interface{}) error {
	if src == nil {
		*m = MethodUnset
		return nil
	}
	str, ok := src.(string)
	if !ok {
		if b, okb := src.([]byte); okb {
			str = string(b)
		} else {
			return fmt.Errorf("cannot scan %T into PaymentMethod", src)
		}
	}
	parsed, err := ParsePaymentMethod(str)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePaymentMethod(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// VehicleType scopes fee schedules.
type VehicleType string

const (
	VehicleCar       VehicleType = "Car"
	VehicleMotorbike VehicleType = "Motorbike"
	VehicleTruck     VehicleType = "Truck"
)

func ParseVehicleType(s string) (VehicleType, error) {
	switch VehicleType(s) {
	case VehicleCar, VehicleMotorbike, VehicleTruck:
		return VehicleType(s), nil
	}
	return "", fmt.Errorf("unknown vehicle type %q", s)
}

func (v VehicleType) Value() (driver.Value, error) { return string(v), nil }

func (v *VehicleType) Scan(src interface{}) error {
	str, ok := src.(string)
	if !ok {
		if b, okb := src.([]byte); okb {
			str = string(b)
		} else {
			return fmt.Errorf("cannot scan %T into VehicleType", src)
		}
	}
	parsed, err := ParseVehicleType(str)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v *VehicleType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseVehicleType(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Gateway-reported payment request statuses. The gateway owns this vocabulary;
// anything outside the re-issuance set is passed through untouched.
const (
	GatewayPending   = "PENDING"
	GatewayPaid      = "PAID"
	GatewayExpired   = "EXPIRED"
	GatewayCancelled = "CANCELLED"
	GatewayUnderpaid = "UNDERPAID"
)
