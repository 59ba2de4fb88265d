package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/banyan-booking/internal/booking"
	"github.com/wolfman30/banyan-booking/internal/events"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// BookingNotifier publishes booking events and emails the practice.
type BookingNotifier struct {
	publisher     events.Publisher
	email         EmailSender
	practiceEmail string
	logger        *logging.Logger
}

// NewBookingNotifier creates a notifier. publisher and email may be nil.
func NewBookingNotifier(publisher events.Publisher, email EmailSender, practiceEmail string, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{
		publisher:     publisher,
		email:         email,
		practiceEmail: strings.TrimSpace(practiceEmail),
		logger:        logger,
	}
}

var _ booking.Notifier = (*BookingNotifier)(nil)

// Notify implements booking.Notifier. Both deliveries are attempted.
func (n *BookingNotifier) Notify(ctx context.Context, evt booking.Event) error {
	var errs []error
	if n.publisher != nil {
		canonical, err := toCanonical(evt)
		if err != nil {
			return err
		}
		if _, err := n.publisher.Publish(ctx, evt.SessionID, canonical, events.WithCorrelationID(evt.OrderID)); err != nil {
			errs = append(errs, err)
		}
	}
	if n.email != nil && n.practiceEmail != "" {
		if err := n.email.Send(ctx, practiceEmail(n.practiceEmail, evt)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func toCanonical(evt booking.Event) (events.CanonicalEvent, error) {
	switch evt.Type {
	case booking.EventPaymentConfirmed:
		return events.PaymentConfirmedV1{
			SessionID:    evt.SessionID,
			CounselorID:  evt.CounselorID,
			Phone:        evt.Phone,
			OrderID:      evt.OrderID,
			SessionCount: evt.SessionCount,
			Balance:      evt.Balance,
			Source:       evt.Source,
			ConfirmedAt:  evt.At,
		}, nil
	case booking.EventCompleted:
		return events.BookingCompletedV1{
			SessionID:    evt.SessionID,
			CounselorID:  evt.CounselorID,
			OrderID:      evt.OrderID,
			SessionCount: evt.SessionCount,
			CompletedAt:  evt.At,
		}, nil
	default:
		return nil, fmt.Errorf("notify: unknown booking event %q", evt.Type)
	}
}

func practiceEmail(to string, evt booking.Event) EmailMessage {
	when := evt.At.Format("January 2, 2006 at 15:04 MST")
	var subject, body string
	switch evt.Type {
	case booking.EventPaymentConfirmed:
		subject = fmt.Sprintf("Payment confirmed: %d sessions with %s", evt.SessionCount, evt.CounselorName)
		body = fmt.Sprintf("Order %s was confirmed (%s) on %s.\n\nClient phone: %s\nCounselor: %s\nSessions purchased: %d\nClient balance: %d\n",
			evt.OrderID, evt.Source, when, evt.Phone, evt.CounselorName, evt.SessionCount, evt.Balance)
	default:
		subject = fmt.Sprintf("Intake completed for %s", evt.CounselorName)
		body = fmt.Sprintf("The client booked under order %s finished the intake form on %s.\n\nClient phone: %s\nCounselor: %s\n",
			evt.OrderID, when, evt.Phone, evt.CounselorName)
	}
	return EmailMessage{To: to, ToName: "Banyan Practice", Subject: subject, Body: body}
}
