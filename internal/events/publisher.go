package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, aggregate string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error)
}

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher publishes envelopes on the event type subject.
type NATSPublisher struct {
	conn   msgPublisher
	nc     *nats.Conn
	logger *logging.Logger
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url string, logger *logging.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("banyan-booking"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect nats: %w", err)
	}
	return &NATSPublisher{conn: nc, nc: nc, logger: logger}, nil
}

func newNATSPublisherWithConn(conn msgPublisher, logger *logging.Logger) *NATSPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

// Publish sends evt. The event id rides in the Nats-Msg-Id header so a
// JetStream stream can drop duplicates.
func (p *NATSPublisher) Publish(ctx context.Context, aggregate string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	env, err := NewEnvelope(aggregate, evt, opts...)
	if err != nil {
		return Envelope{}, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal envelope: %w", err)
	}
	msg := nats.NewMsg(env.EventType)
	msg.Header.Set(nats.MsgIdHdr, env.EventID.String())
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return Envelope{}, fmt.Errorf("events: publish %s: %w", env.EventType, err)
	}
	p.logger.Debug("event published", "subject", env.EventType, "event_id", env.EventID, "aggregate", aggregate)
	return env, nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, aggregate string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error) {
	env, err := NewEnvelope(aggregate, evt, opts...)
	if err != nil {
		return Envelope{}, err
	}
	p.logger.Info("event", "subject", env.EventType, "event_id", env.EventID, "aggregate", aggregate, "payload", string(env.Payload))
	return env, nil
}
