package payments

import (
	"context"
	"sync"
)

// scriptedVerifier replays a fixed sequence of answers, then repeats the last.
type scriptedVerifier struct {
	mu      sync.Mutex
	answers []scriptedAnswer
	calls   int
}

type scriptedAnswer struct {
	success bool
	err     error
}

func (s *scriptedVerifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.answers) {
		idx = len(s.answers) - 1
	}
	s.calls++
	answer := s.answers[idx]
	s.mu.Unlock()

	if answer.err != nil {
		return nil, answer.err
	}
	status := StatusWaitBuyerPay
	if answer.success {
		status = StatusTradeSuccess
	}
	return &VerifyResult{Success: answer.success, OrderID: req.OrderID, Status: status}, nil
}

func (s *scriptedVerifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObservePoll(outcome string) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func (r *recordingObserver) ObserveGatewayLatency(string, float64) {}

func (r *recordingObserver) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}
