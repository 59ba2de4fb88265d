package booking

import (
	"context"
	"time"
)

// EventType doubles as the event subject.
type EventType string

const (
	EventPaymentConfirmed EventType = "booking.payment_confirmed"
	EventCompleted        EventType = "booking.completed"
)

// Event describes a booking milestone.
type Event struct {
	Type          EventType `json:"type"`
	SessionID     string    `json:"session_id"`
	CounselorID   string    `json:"counselor_id"`
	CounselorName string    `json:"counselor_name"`
	Phone         string    `json:"phone"`
	OrderID       string    `json:"order_id"`
	SessionCount  int       `json:"session_count"`
	Balance       int       `json:"balance,omitempty"`
	Source        string    `json:"source"`
	At            time.Time `json:"at"`
}

// Notifier is told about confirmed payments and completed bookings. Errors
// are logged and never affect the booking.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, evt Event) error

func (f NotifierFunc) Notify(ctx context.Context, evt Event) error { return f(ctx, evt) }
