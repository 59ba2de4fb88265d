package events

import "time"

const (
	SubjectPaymentConfirmed = "booking.payment_confirmed"
	SubjectBookingCompleted = "booking.completed"
)

type PaymentConfirmedV1 struct {
	SessionID    string    `json:"session_id"`
	CounselorID  string    `json:"counselor_id"`
	Phone        string    `json:"phone"`
	OrderID      string    `json:"order_id"`
	SessionCount int       `json:"session_count"`
	Balance      int       `json:"balance"`
	Source       string    `json:"source"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

func (PaymentConfirmedV1) EventType() string { return SubjectPaymentConfirmed }

type BookingCompletedV1 struct {
	SessionID    string    `json:"session_id"`
	CounselorID  string    `json:"counselor_id"`
	OrderID      string    `json:"order_id"`
	SessionCount int       `json:"session_count"`
	CompletedAt  time.Time `json:"completed_at"`
}

func (BookingCompletedV1) EventType() string { return SubjectBookingCompleted }
