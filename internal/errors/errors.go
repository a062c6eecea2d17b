package errors

import "errors"

var ErrSessionNotFound = errors.New("parking session not found")
var ErrScheduleNotFound = errors.New("fee schedule not found")
var ErrUnauthorized = errors.New("caller is not authorized for this operation")
var ErrSessionNotPaid = errors.New("session has not been paid")
var ErrPaymentExpired = errors.New("paid amount no longer covers the session fee")
var ErrGatewayUnavailable = errors.New("payment gateway returned no usable response")

var ErrLotNotFound = errors.New("parking lot not found")
var ErrSessionAlreadyOpen = errors.New("an open session already exists for this plate and lot")
var ErrAlreadyCheckedOut = errors.New("session is already checked out")
var ErrAlreadyPaid = errors.New("session is already paid")
var ErrNoPaymentInfo = errors.New("no payment request exists for this session")
var ErrVersionConflict = errors.New("session was modified concurrently")
