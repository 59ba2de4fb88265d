package payments

import (
	"context"
	"time"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// PollObserver receives per-tick outcomes; metrics.BookingMetrics satisfies it.
type PollObserver interface {
	ObservePoll(outcome string)
	ObserveGatewayLatency(source string, seconds float64)
}

// Poll outcomes reported to the observer.
const (
	PollConfirmed = "confirmed"
	PollPending   = "pending"
	PollError     = "error"
)

// Poller asks the gateway about one order on a fixed interval until it is
// confirmed or its context is cancelled.
type Poller struct {
	verifier Verifier
	request  VerifyRequest
	interval time.Duration
	observer PollObserver
	logger   *logging.Logger

	// before runs ahead of every request; returning false stops the loop
	// without issuing it.
	before func() bool
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithPollObserver reports tick outcomes.
func WithPollObserver(o PollObserver) PollerOption {
	return func(p *Poller) { p.observer = o }
}

// WithPollGuard installs a check evaluated before each request.
func WithPollGuard(fn func() bool) PollerOption {
	return func(p *Poller) { p.before = fn }
}

// NewPoller builds a poller for one order.
func NewPoller(verifier Verifier, req VerifyRequest, interval time.Duration, logger *logging.Logger, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Poller{
		verifier: verifier,
		request:  req,
		interval: interval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until the order is confirmed (returning the result) or ctx is
// cancelled (returning ctx.Err()). Gateway errors and negative answers never
// stop the loop.
func (p *Poller) Run(ctx context.Context) (*VerifyResult, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if p.before != nil && !p.before() {
			return nil, context.Canceled
		}
		// the guard may have raced a cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		start := time.Now()
		result, err := p.verifier.Verify(ctx, p.request)
		p.observeLatency(time.Since(start))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.observe(PollError)
			p.logger.Warn("payment poll failed", "error", err, "order_id", p.request.OrderID)
			continue
		}
		if result == nil || !result.Success {
			p.observe(PollPending)
			continue
		}
		p.observe(PollConfirmed)
		return result, nil
	}
}

func (p *Poller) observe(outcome string) {
	if p.observer != nil {
		p.observer.ObservePoll(outcome)
	}
}

func (p *Poller) observeLatency(d time.Duration) {
	if p.observer != nil {
		p.observer.ObserveGatewayLatency("poll", d.Seconds())
	}
}
