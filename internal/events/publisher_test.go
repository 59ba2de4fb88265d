package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type captureConn struct {
	msgs []*nats.Msg
	err  error
}

func (c *captureConn) PublishMsg(msg *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

type badEvent struct{}

func (badEvent) EventType() string { return "" }

func TestNewEnvelope(t *testing.T) {
	fixedNow := time.Unix(0, 123456000).UTC()
	prevNow := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	defer func() { nowFunc = prevNow }()

	id := uuid.MustParse("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8")
	env, err := NewEnvelope("session-1", PaymentConfirmedV1{
		SessionID:    "session-1",
		OrderID:      "BY-1-abcdef12",
		SessionCount: 20,
	}, WithEventID(id), WithCorrelationID(" BY-1-abcdef12 "))
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	if env.EventID != id {
		t.Fatalf("expected event id override, got %s", env.EventID)
	}
	if env.TimestampMicros != fixedNow.UnixMicro() {
		t.Fatalf("unexpected timestamp: %d", env.TimestampMicros)
	}
	if env.EventType != SubjectPaymentConfirmed {
		t.Fatalf("unexpected type: %s", env.EventType)
	}
	if env.CorrelationID != "BY-1-abcdef12" {
		t.Fatalf("unexpected correlation id: %q", env.CorrelationID)
	}
	var payload PaymentConfirmedV1
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.SessionCount != 20 {
		t.Fatalf("unexpected payload %s: %v", env.Payload, err)
	}
}

func TestNewEnvelopeValidation(t *testing.T) {
	if _, err := NewEnvelope(" ", BookingCompletedV1{}); !errors.Is(err, errMissingAggregate) {
		t.Fatalf("expected missing aggregate, got %v", err)
	}
	if _, err := NewEnvelope("s", nil); !errors.Is(err, errNilEvent) {
		t.Fatalf("expected nil event error, got %v", err)
	}
	if _, err := NewEnvelope("s", badEvent{}); err == nil {
		t.Fatal("expected error for empty event type")
	}
}

func TestNATSPublisherPublishesOnSubject(t *testing.T) {
	conn := &captureConn{}
	p := newNATSPublisherWithConn(conn, nil)

	env, err := p.Publish(context.Background(), "session-1", BookingCompletedV1{SessionID: "session-1"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(conn.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.Subject != SubjectBookingCompleted {
		t.Fatalf("unexpected subject %s", msg.Subject)
	}
	if msg.Header.Get(nats.MsgIdHdr) != env.EventID.String() {
		t.Fatalf("expected msg id header %s, got %s", env.EventID, msg.Header.Get(nats.MsgIdHdr))
	}
	var decoded Envelope
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Aggregate != "session-1" {
		t.Fatalf("unexpected aggregate %s", decoded.Aggregate)
	}
}

func TestNATSPublisherErrors(t *testing.T) {
	p := newNATSPublisherWithConn(&captureConn{err: nats.ErrConnectionClosed}, nil)
	if _, err := p.Publish(context.Background(), "s", BookingCompletedV1{}); !errors.Is(err, nats.ErrConnectionClosed) {
		t.Fatalf("expected connection closed, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Publish(ctx, "s", BookingCompletedV1{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close without connection: %v", err)
	}
}

func TestLogPublisher(t *testing.T) {
	env, err := NewLogPublisher(nil).Publish(context.Background(), "s", BookingCompletedV1{SessionID: "s"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if env.EventType != SubjectBookingCompleted {
		t.Fatalf("unexpected type %s", env.EventType)
	}
}
