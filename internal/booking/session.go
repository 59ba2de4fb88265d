package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/internal/credits"
	"github.com/wolfman30/banyan-booking/internal/observability/metrics"
	"github.com/wolfman30/banyan-booking/internal/payments"
	"github.com/wolfman30/banyan-booking/internal/pricing"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

var tracer = otel.Tracer("banyan.internal.booking")

// Check outcomes reported to the client.
type CheckOutcome string

const (
	OutcomeConfirmed        CheckOutcome = "confirmed"
	OutcomeAlreadyConfirmed CheckOutcome = "already_confirmed"
	OutcomeNotDetected      CheckOutcome = "not_detected"
	OutcomeInconclusive     CheckOutcome = "inconclusive"
)

const (
	msgConfirmed    = "Payment confirmed"
	msgNotDetected  = "Payment not yet detected, please retry shortly after completing payment"
	msgInconclusive = "Verification could not be completed, please contact the practice assistant to reconcile manually"
)

// CheckResult is the answer to a manual "I have paid" request.
type CheckResult struct {
	Outcome CheckOutcome `json:"outcome"`
	Message string       `json:"message"`
	Stage   Stage        `json:"stage"`
	OrderID string       `json:"order_id"`
}

// Dependencies are the collaborators shared by every session.
type Dependencies struct {
	Verifier     payments.Verifier
	Ledger       credits.Ledger
	Notifier     Notifier
	Metrics      *metrics.BookingMetrics
	PollInterval time.Duration
	CheckTimeout time.Duration
	Logger       *logging.Logger
}

func (d *Dependencies) normalize() {
	if d.PollInterval <= 0 {
		d.PollInterval = 3 * time.Second
	}
	if d.CheckTimeout <= 0 {
		d.CheckTimeout = 10 * time.Second
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
}

// pollRun is one polling loop bound to one order.
type pollRun struct {
	orderID string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Session is one client's pass through the booking flow for one counselor.
// All methods are safe for concurrent use.
type Session struct {
	id        string
	counselor counselors.Counselor
	phone     string
	deps      Dependencies
	logger    *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// settleMu serialises settlements; it is taken before mu, never after.
	settleMu sync.Mutex

	mu         sync.Mutex
	state      State
	orders     map[string]struct{}
	credited   map[string]struct{}
	poll       *pollRun
	closed     bool
	lastActive time.Time
	subs       map[chan Snapshot]struct{}
}

// NewSession starts a session in the profile stage.
func NewSession(id string, counselor counselors.Counselor, phone string, deps Dependencies) (*Session, error) {
	if deps.Verifier == nil || deps.Ledger == nil {
		return nil, errors.New("booking: verifier and ledger are required")
	}
	phone = credits.NormalizePhone(phone)
	if phone == "" {
		return nil, ErrMissingContact
	}
	if id == "" {
		id = uuid.NewString()
	}
	deps.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		counselor:  counselor,
		phone:      phone,
		deps:       deps,
		logger:     deps.Logger.With("session_id", id, "counselor_id", counselor.ID),
		ctx:        ctx,
		cancel:     cancel,
		state:      Profile{},
		orders:     make(map[string]struct{}),
		credited:   make(map[string]struct{}),
		lastActive: time.Now(),
		subs:       make(map[chan Snapshot]struct{}),
	}, nil
}

func (s *Session) ID() string { return s.id }

// State returns the current state value.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive is the time of the last client operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SelectSlot records the chosen slot. Only valid in profile.
func (s *Session) SelectSlot(slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return err
	}
	if _, ok := s.state.(Profile); !ok {
		return fmt.Errorf("%w: select slot in %s", ErrInvalidTransition, s.state.Stage())
	}
	slot.Day = strings.TrimSpace(slot.Day)
	slot.Time = strings.TrimSpace(slot.Time)
	if slot.Day == "" || slot.Time == "" {
		return ErrSlotRequired
	}
	if len(s.counselor.Slots) > 0 && !s.counselor.HasOpenSlot(slot.Day, slot.Time) {
		return fmt.Errorf("%w: %s %s", ErrSlotUnavailable, slot.Day, slot.Time)
	}
	s.state = Profile{Slot: &slot}
	s.publishLocked()
	return nil
}

// Advance moves profile→packages, packages→payment or assistant→intake.
// Advancing from profile without a slot leaves the state unchanged and
// returns ErrSlotRequired.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return err
	}
	switch st := s.state.(type) {
	case Profile:
		if st.Slot == nil {
			return ErrSlotRequired
		}
		s.transitionLocked(Packages{Slot: *st.Slot, SessionCount: pricing.MinSessions, Method: MethodQR})
	case Packages:
		s.enterPaymentLocked(st)
	case Assistant:
		s.transitionLocked(Intake{OrderID: st.OrderID, SessionCount: st.SessionCount})
	default:
		return fmt.Errorf("%w: advance from %s", ErrInvalidTransition, st.Stage())
	}
	return nil
}

// Back moves packages→profile or payment→packages. Leaving payment stops
// its polling loop before Back returns.
func (s *Session) Back() error {
	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	var run *pollRun
	switch st := s.state.(type) {
	case Packages:
		slot := st.Slot
		s.transitionLocked(Profile{Slot: &slot})
	case Payment:
		if st.Settling {
			s.mu.Unlock()
			return ErrPaymentSettling
		}
		run = s.detachPollLocked()
		s.transitionLocked(Packages{Slot: st.Slot, SessionCount: st.SessionCount, Method: st.Method})
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, st.Stage())
	}
	s.mu.Unlock()
	waitPoll(run)
	return nil
}

// SetPackage picks the session count and payment method. An empty method
// keeps the current one.
func (s *Session) SetPackage(sessionCount int, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return err
	}
	st, ok := s.state.(Packages)
	if !ok {
		return fmt.Errorf("%w: set package in %s", ErrInvalidTransition, s.state.Stage())
	}
	if err := pricing.ValidateCount(sessionCount); err != nil {
		return err
	}
	if method != "" {
		m, err := ParsePaymentMethod(method)
		if err != nil {
			return err
		}
		st.Method = m
	}
	st.SessionCount = sessionCount
	s.state = st
	s.publishLocked()
	return nil
}

// CompleteIntake is the intake form completion callback: intake→success.
func (s *Session) CompleteIntake(ctx context.Context) error {
	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	st, ok := s.state.(Intake)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: complete intake in %s", ErrInvalidTransition, s.state.Stage())
	}
	s.transitionLocked(Success{OrderID: st.OrderID})
	evt := s.eventLocked(EventCompleted, st.OrderID, st.SessionCount, 0, "intake")
	s.mu.Unlock()

	s.notify(ctx, evt)
	return nil
}

// CheckPayment runs the manual "I have paid" verification for the current
// order. Gateway faults and negative answers are reported as outcomes, not
// errors; errors mean the request did not apply.
func (s *Session) CheckPayment(ctx context.Context) (CheckResult, error) {
	ctx, span := tracer.Start(ctx, "booking.CheckPayment", trace.WithAttributes(
		attribute.String("banyan.session_id", s.id),
	))
	defer span.End()

	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return CheckResult{}, err
	}
	st, ok := s.state.(Payment)
	if !ok {
		if a, confirmed := s.state.(Assistant); confirmed {
			s.mu.Unlock()
			s.deps.Metrics.ObserveManualCheck(string(OutcomeAlreadyConfirmed))
			return CheckResult{Outcome: OutcomeAlreadyConfirmed, Message: msgConfirmed, Stage: StageAssistant, OrderID: a.OrderID}, nil
		}
		stage := s.state.Stage()
		s.mu.Unlock()
		return CheckResult{}, fmt.Errorf("%w: check payment in %s", ErrInvalidTransition, stage)
	}
	if st.Checking {
		s.mu.Unlock()
		return CheckResult{}, ErrCheckInProgress
	}
	span.SetAttributes(attribute.String("banyan.order_id", st.OrderID))

	if st.Verified {
		// Confirmed earlier: either a settlement is running or the credit
		// did not go through. Settle without asking the gateway again.
		s.mu.Unlock()
		result, run, evt, err := s.settle(ctx, st.OrderID, "manual")
		if err != nil {
			return CheckResult{}, err
		}
		if result.Outcome == OutcomeConfirmed {
			result.Outcome = OutcomeAlreadyConfirmed
		}
		waitPoll(run)
		s.finishCheck(ctx, result, evt)
		return result, nil
	}

	st.Checking = true
	s.state = st
	s.publishLocked()
	orderID := st.OrderID
	s.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, s.deps.CheckTimeout)
	start := time.Now()
	answer, verr := s.deps.Verifier.Verify(checkCtx, payments.VerifyRequest{OrderID: orderID, Phone: s.phone})
	cancel()
	s.deps.Metrics.ObserveGatewayLatency("manual", time.Since(start).Seconds())

	s.mu.Lock()
	cur, still := s.state.(Payment)
	if !still || cur.OrderID != orderID {
		defer s.mu.Unlock()
		if a, confirmed := s.state.(Assistant); confirmed && a.OrderID == orderID {
			result := CheckResult{Outcome: OutcomeAlreadyConfirmed, Message: msgConfirmed, Stage: StageAssistant, OrderID: orderID}
			s.deps.Metrics.ObserveManualCheck(string(result.Outcome))
			return result, nil
		}
		if s.closed {
			return CheckResult{}, ErrSessionClosed
		}
		return CheckResult{}, ErrOrderSuperseded
	}
	cur.Checking = false

	var (
		result CheckResult
		run    *pollRun
		evt    *Event
	)
	switch {
	case cur.Verified || (verr == nil && answer != nil && answer.Success):
		// A poll may have verified the order while this check was in flight.
		s.state = cur
		s.mu.Unlock()
		var err error
		result, run, evt, err = s.settle(ctx, orderID, "manual")
		if err != nil {
			return CheckResult{}, err
		}
		waitPoll(run)
		s.finishCheck(ctx, result, evt)
		return result, nil
	case verr != nil:
		s.logger.Warn("manual payment check failed", "order_id", orderID, "error", verr)
		span.RecordError(verr)
		s.state = cur
		s.publishLocked()
		result = CheckResult{Outcome: OutcomeInconclusive, Message: msgInconclusive, Stage: StagePayment, OrderID: orderID}
	default:
		s.state = cur
		s.publishLocked()
		result = CheckResult{Outcome: OutcomeNotDetected, Message: msgNotDetected, Stage: StagePayment, OrderID: orderID}
	}
	s.mu.Unlock()

	waitPoll(run)
	s.finishCheck(ctx, result, evt)
	if result.Outcome == OutcomeInconclusive {
		span.SetStatus(codes.Error, string(result.Outcome))
	}
	return result, nil
}

func (s *Session) finishCheck(ctx context.Context, result CheckResult, evt *Event) {
	s.deps.Metrics.ObserveManualCheck(string(result.Outcome))
	if evt != nil {
		s.notify(ctx, *evt)
	}
}

// Close tears the session down. It is idempotent and returns once the
// polling loop, if any, has exited.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	run := s.detachPollLocked()
	s.cancel()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	waitPoll(run)
	s.logger.Debug("booking session closed")
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touchLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.lastActive = time.Now()
	return nil
}

func (s *Session) transitionLocked(next State) {
	from := s.state.Stage()
	s.state = next
	s.deps.Metrics.ObserveTransition(string(from), string(next.Stage()))
	s.logger.Info("booking stage changed", "from", from, "to", next.Stage())
	s.publishLocked()
}

// enterPaymentLocked issues a fresh order and starts polling it.
func (s *Session) enterPaymentLocked(from Packages) {
	orderID := newOrderID()
	for {
		if _, used := s.orders[orderID]; !used {
			break
		}
		orderID = newOrderID()
	}
	s.orders[orderID] = struct{}{}
	s.transitionLocked(Payment{
		Slot:         from.Slot,
		SessionCount: from.SessionCount,
		Method:       from.Method,
		OrderID:      orderID,
	})
	s.startPollLocked(orderID)
}

func newOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("BY-%d-%s", time.Now().UnixMilli(), suffix)
}

func (s *Session) startPollLocked(orderID string) {
	ctx, cancel := context.WithCancel(s.ctx)
	run := &pollRun{orderID: orderID, cancel: cancel, done: make(chan struct{})}
	s.poll = run

	guard := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ctx.Err() != nil {
			return false
		}
		p, ok := s.state.(Payment)
		return ok && p.OrderID == orderID && !p.Verified
	}
	poller := payments.NewPoller(
		s.deps.Verifier,
		payments.VerifyRequest{OrderID: orderID, Phone: s.phone},
		s.deps.PollInterval,
		s.logger,
		payments.WithPollObserver(s.deps.Metrics),
		payments.WithPollGuard(guard),
	)

	go func() {
		defer close(run.done)
		result, err := poller.Run(ctx)
		if err != nil || result == nil {
			return
		}
		s.onPollConfirmed(ctx, orderID)
	}()
}

// detachPollLocked cancels the current loop. The caller must wait on the
// returned run after releasing the lock.
func (s *Session) detachPollLocked() *pollRun {
	run := s.poll
	s.poll = nil
	if run != nil {
		run.cancel()
	}
	return run
}

func waitPoll(run *pollRun) {
	if run != nil {
		<-run.done
	}
}

// onPollConfirmed runs on the polling goroutine. It must not wait on its
// own run.
func (s *Session) onPollConfirmed(ctx context.Context, orderID string) {
	s.mu.Lock()
	if ctx.Err() != nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.logger.Info("payment confirmed by poll", "order_id", orderID)

	result, _, evt, err := s.settle(context.WithoutCancel(ctx), orderID, "poll")
	if err != nil {
		s.logger.Debug("poll confirmation dropped", "order_id", orderID, "error", err)
		return
	}
	if evt != nil {
		s.notify(context.WithoutCancel(ctx), *evt)
	}
	if result.Outcome == OutcomeInconclusive {
		s.logger.Warn("payment confirmed but credit pending; awaiting manual check", "order_id", orderID)
	}
}

// settle performs payment→assistant for a verified order: it credits the
// ledger once per order, stops polling and transitions. The ledger call runs
// without mu held, so snapshots and the poll guard never wait on it. While
// it runs the state is Payment{Verified, Settling} and Back is refused. When
// the credit fails the session stays in payment with Verified set. The
// caller must not hold mu and must wait on the returned run.
func (s *Session) settle(ctx context.Context, orderID, source string) (CheckResult, *pollRun, *Event, error) {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	ctx, span := tracer.Start(ctx, "booking.ConfirmPayment", trace.WithAttributes(
		attribute.String("banyan.order_id", orderID),
		attribute.String("banyan.confirm_source", source),
	))
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return CheckResult{}, nil, nil, ErrSessionClosed
	}
	st, ok := s.state.(Payment)
	if !ok || st.OrderID != orderID {
		defer s.mu.Unlock()
		if a, confirmed := s.state.(Assistant); confirmed && a.OrderID == orderID {
			return CheckResult{Outcome: OutcomeAlreadyConfirmed, Message: msgConfirmed, Stage: StageAssistant, OrderID: orderID}, nil, nil, nil
		}
		return CheckResult{}, nil, nil, ErrOrderSuperseded
	}
	st.Verified = true
	st.Settling = true
	s.state = st
	s.publishLocked()
	_, credited := s.credited[orderID]
	s.mu.Unlock()

	var (
		applied bool
		balance int
		err     error
	)
	if !credited {
		applied, balance, err = s.deps.Ledger.Credit(ctx, s.phone, orderID, st.SessionCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Back is refused while settling and Close leaves the state alone.
	cur, ok := s.state.(Payment)
	if !ok || cur.OrderID != orderID {
		return CheckResult{}, nil, nil, ErrOrderSuperseded
	}
	cur.Settling = false
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credit failed")
		s.logger.Error("failed to credit sessions", "order_id", orderID, "error", err)
		s.state = cur
		s.publishLocked()
		return CheckResult{Outcome: OutcomeInconclusive, Message: msgInconclusive, Stage: StagePayment, OrderID: orderID}, nil, nil, nil
	}
	s.credited[orderID] = struct{}{}
	if applied {
		s.deps.Metrics.ObserveCredits(cur.SessionCount)
	}

	var run *pollRun
	if s.poll != nil && s.poll.orderID == orderID {
		run = s.detachPollLocked()
	}
	s.transitionLocked(Assistant{OrderID: orderID, SessionCount: cur.SessionCount})
	evt := s.eventLocked(EventPaymentConfirmed, orderID, cur.SessionCount, balance, source)
	if source == "poll" {
		// the caller is the polling goroutine itself
		run = nil
	}
	return CheckResult{Outcome: OutcomeConfirmed, Message: msgConfirmed, Stage: StageAssistant, OrderID: orderID}, run, &evt, nil
}

func (s *Session) eventLocked(typ EventType, orderID string, sessionCount, balance int, source string) Event {
	evt := Event{
		Type:          typ,
		SessionID:     s.id,
		CounselorID:   s.counselor.ID,
		CounselorName: s.counselor.Name,
		Phone:         s.phone,
		OrderID:       orderID,
		SessionCount:  sessionCount,
		Balance:       balance,
		Source:        source,
		At:            time.Now().UTC(),
	}
	return evt
}

func (s *Session) notify(ctx context.Context, evt Event) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, evt); err != nil {
		s.logger.Warn("booking notification failed", "event", evt.Type, "order_id", evt.OrderID, "error", err)
	}
}
