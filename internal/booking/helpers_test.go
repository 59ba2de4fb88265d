package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/internal/credits"
	"github.com/wolfman30/banyan-booking/internal/payments"
)

const testPhone = "13800000000"

// fakeVerifier answers with fn(call), where call counts from 1.
type fakeVerifier struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (bool, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, req payments.VerifyRequest) (*payments.VerifyResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	ok, err := f.fn(call)
	if err != nil {
		return nil, err
	}
	status := payments.StatusWaitBuyerPay
	if ok {
		status = payments.StatusTradeSuccess
	}
	return &payments.VerifyResult{Success: ok, OrderID: req.OrderID, Status: status, Timestamp: time.Now()}, nil
}

func (f *fakeVerifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func always(ok bool) func(int) (bool, error) {
	return func(int) (bool, error) { return ok, nil }
}

// flakyLedger fails the first `failures` credits.
type flakyLedger struct {
	*credits.MemoryLedger
	mu       sync.Mutex
	failures int
	attempts int
}

func (l *flakyLedger) Credit(ctx context.Context, phone, orderID string, sessions int) (bool, int, error) {
	l.mu.Lock()
	l.attempts++
	fail := l.attempts <= l.failures
	l.mu.Unlock()
	if fail {
		return false, 0, errors.New("ledger unavailable")
	}
	return l.MemoryLedger.Credit(ctx, phone, orderID, sessions)
}

// blockingLedger parks every credit until release is closed.
type blockingLedger struct {
	*credits.MemoryLedger
	entered     chan struct{}
	release     chan struct{}
	releaseOnce sync.Once
}

func newBlockingLedger() *blockingLedger {
	return &blockingLedger{
		MemoryLedger: credits.NewMemoryLedger(),
		entered:      make(chan struct{}, 4),
		release:      make(chan struct{}),
	}
}

func (l *blockingLedger) Credit(ctx context.Context, phone, orderID string, sessions int) (bool, int, error) {
	l.entered <- struct{}{}
	<-l.release
	return l.MemoryLedger.Credit(ctx, phone, orderID, sessions)
}

func (l *blockingLedger) Release() {
	l.releaseOnce.Do(func() { close(l.release) })
}

type recordedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordedEvents) Notify(ctx context.Context, evt Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
	return nil
}

func (r *recordedEvents) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func testCounselor() counselors.Counselor {
	return counselors.Counselor{
		ID:         "1",
		Name:       "Sienna Guo",
		PriceCents: 60000,
		Slots:      counselors.WeeklySlots(),
	}
}

func newTestSession(t *testing.T, deps Dependencies) *Session {
	t.Helper()
	if deps.Ledger == nil {
		deps.Ledger = credits.NewMemoryLedger()
	}
	s, err := NewSession("", testCounselor(), testPhone, deps)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// toPayment drives a fresh session to the payment stage with count sessions.
func toPayment(t *testing.T, s *Session, count int) Payment {
	t.Helper()
	if err := s.SelectSlot(Slot{Day: "Mon", Time: "10:00"}); err != nil {
		t.Fatalf("select slot: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance to packages: %v", err)
	}
	if err := s.SetPackage(count, "qr"); err != nil {
		t.Fatalf("set package: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance to payment: %v", err)
	}
	p, ok := s.State().(Payment)
	if !ok {
		t.Fatalf("expected payment stage, got %s", s.State().Stage())
	}
	return p
}
