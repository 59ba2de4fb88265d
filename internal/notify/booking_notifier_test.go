package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/banyan-booking/internal/booking"
	"github.com/wolfman30/banyan-booking/internal/events"
)

type recordingPublisher struct {
	aggregates []string
	events     []events.CanonicalEvent
	err        error
}

func (p *recordingPublisher) Publish(ctx context.Context, aggregate string, evt events.CanonicalEvent, opts ...events.EnvelopeOption) (events.Envelope, error) {
	if p.err != nil {
		return events.Envelope{}, p.err
	}
	p.aggregates = append(p.aggregates, aggregate)
	p.events = append(p.events, evt)
	return events.NewEnvelope(aggregate, evt, opts...)
}

type recordingSender struct {
	msgs []EmailMessage
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func confirmedEvent() booking.Event {
	return booking.Event{
		Type:          booking.EventPaymentConfirmed,
		SessionID:     "session-1",
		CounselorID:   "1",
		CounselorName: "Sienna Guo",
		Phone:         "13800000000",
		OrderID:       "BY-1-abcdef12",
		SessionCount:  20,
		Balance:       20,
		Source:        "poll",
		At:            time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBookingNotifierPublishesAndEmails(t *testing.T) {
	pub := &recordingPublisher{}
	sender := &recordingSender{}
	n := NewBookingNotifier(pub, sender, " owner@banyan.example ", nil)

	require.NoError(t, n.Notify(context.Background(), confirmedEvent()))

	require.Len(t, pub.events, 1)
	assert.Equal(t, []string{"session-1"}, pub.aggregates)
	confirmed, ok := pub.events[0].(events.PaymentConfirmedV1)
	require.True(t, ok)
	assert.Equal(t, 20, confirmed.SessionCount)
	assert.Equal(t, "poll", confirmed.Source)

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, "owner@banyan.example", msg.To)
	assert.Equal(t, "Payment confirmed: 20 sessions with Sienna Guo", msg.Subject)
	assert.True(t, strings.Contains(msg.Body, "BY-1-abcdef12"))

	completed := confirmedEvent()
	completed.Type = booking.EventCompleted
	require.NoError(t, n.Notify(context.Background(), completed))
	_, ok = pub.events[1].(events.BookingCompletedV1)
	assert.True(t, ok)
	assert.Contains(t, sender.msgs[1].Subject, "Intake completed")
}

func TestBookingNotifierJoinsErrors(t *testing.T) {
	pubErr := errors.New("broker down")
	mailErr := errors.New("mail down")
	n := NewBookingNotifier(&recordingPublisher{err: pubErr}, &recordingSender{err: mailErr}, "owner@banyan.example", nil)

	err := n.Notify(context.Background(), confirmedEvent())
	assert.ErrorIs(t, err, pubErr)
	assert.ErrorIs(t, err, mailErr)
}

func TestBookingNotifierSkipsMissingCollaborators(t *testing.T) {
	sender := &recordingSender{}
	n := NewBookingNotifier(nil, sender, "", nil)
	require.NoError(t, n.Notify(context.Background(), confirmedEvent()))
	assert.Empty(t, sender.msgs)

	unknown := confirmedEvent()
	unknown.Type = "booking.unknown"
	assert.Error(t, NewBookingNotifier(&recordingPublisher{}, nil, "", nil).Notify(context.Background(), unknown))
}
