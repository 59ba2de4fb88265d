package booking

import (
	"context"
	"time"

	"github.com/wolfman30/banyan-booking/internal/pricing"
)

// Snapshot is the client-facing view of a session.
type Snapshot struct {
	ID              string         `json:"id"`
	CounselorID     string         `json:"counselor_id"`
	Stage           Stage          `json:"stage"`
	Slot            *Slot          `json:"slot,omitempty"`
	SessionCount    int            `json:"session_count,omitempty"`
	PaymentMethod   PaymentMethod  `json:"payment_method,omitempty"`
	OrderID         string         `json:"order_id,omitempty"`
	PaymentVerified bool           `json:"payment_verified"`
	CheckingPayment bool           `json:"checking_payment"`
	SettlingPayment bool           `json:"settling_payment,omitempty"`
	Quote           *pricing.Quote `json:"quote,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		CounselorID: s.counselor.ID,
		Stage:       s.state.Stage(),
		UpdatedAt:   s.lastActive,
	}
	switch st := s.state.(type) {
	case Profile:
		if st.Slot != nil {
			slot := *st.Slot
			snap.Slot = &slot
		}
	case Packages:
		slot := st.Slot
		snap.Slot = &slot
		snap.SessionCount = st.SessionCount
		snap.PaymentMethod = st.Method
	case Payment:
		slot := st.Slot
		snap.Slot = &slot
		snap.SessionCount = st.SessionCount
		snap.PaymentMethod = st.Method
		snap.OrderID = st.OrderID
		snap.PaymentVerified = st.Verified
		snap.CheckingPayment = st.Checking
		snap.SettlingPayment = st.Settling
	case Assistant:
		snap.SessionCount = st.SessionCount
		snap.OrderID = st.OrderID
		snap.PaymentVerified = true
	case Intake:
		snap.SessionCount = st.SessionCount
		snap.OrderID = st.OrderID
		snap.PaymentVerified = true
	case Success:
		snap.OrderID = st.OrderID
		snap.PaymentVerified = true
	}
	if snap.SessionCount > 0 {
		if q, err := pricing.Compute(snap.SessionCount, s.counselor.PriceCents); err == nil {
			snap.Quote = &q
		}
	}
	return snap
}

// Subscribe streams snapshots after every change, starting with the current
// one. Slow readers only see the latest snapshot. The channel closes when ctx
// ends or the session is closed.
func (s *Session) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	s.subs[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
			return
		}
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()
	return ch
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
