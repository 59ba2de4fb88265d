package booking

import "errors"

var (
	// ErrSlotRequired is returned when advancing from profile without a slot.
	ErrSlotRequired = errors.New("booking: a time slot must be selected")
	// ErrSlotUnavailable is returned for a slot the counselor does not offer.
	ErrSlotUnavailable = errors.New("booking: slot not available")
	// ErrInvalidTransition is returned when an operation does not apply to the current stage.
	ErrInvalidTransition = errors.New("booking: invalid transition")
	// ErrInvalidPaymentMethod is returned for methods other than qr and transfer.
	ErrInvalidPaymentMethod = errors.New("booking: invalid payment method")
	// ErrCheckInProgress is returned when a manual check is already running.
	ErrCheckInProgress = errors.New("booking: payment check already in progress")
	// ErrPaymentSettling is returned when leaving payment while a verified
	// order is being credited.
	ErrPaymentSettling = errors.New("booking: payment confirmation in progress")
	// ErrOrderSuperseded is returned when the order changed while a check was in flight.
	ErrOrderSuperseded = errors.New("booking: order superseded")
	// ErrSessionClosed is returned for operations on a torn-down session.
	ErrSessionClosed = errors.New("booking: session closed")
	// ErrSessionNotFound is returned by the manager for unknown ids.
	ErrSessionNotFound = errors.New("booking: session not found")
	// ErrMissingContact is returned when a session is opened without a phone.
	ErrMissingContact = errors.New("booking: client phone is required")
)
