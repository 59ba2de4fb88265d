package payments

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// SimulatedVerifier answers verification requests without a bank
// integration. It confirms a random share of requests.
//
// This must only back the in-process check endpoint in demo deployments.
type SimulatedVerifier struct {
	successRate float64
	hasCreds    bool
	logger      *logging.Logger
	now         func() time.Time

	mu   sync.Mutex
	rand *rand.Rand

	warnOnce sync.Once
}

// SimulatedConfig configures the simulated gateway.
type SimulatedConfig struct {
	SuccessRate float64
	MerchantID  string
	APIKey      string
	Seed        int64
}

// NewSimulatedVerifier builds a simulated gateway. A zero seed uses the clock.
func NewSimulatedVerifier(cfg SimulatedConfig, logger *logging.Logger) *SimulatedVerifier {
	if logger == nil {
		logger = logging.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rate := cfg.SuccessRate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &SimulatedVerifier{
		successRate: rate,
		hasCreds:    cfg.MerchantID != "" && cfg.APIKey != "",
		logger:      logger,
		now:         time.Now,
		rand:        rand.New(rand.NewSource(seed)),
	}
}

// Verify returns TRADE_SUCCESS with the configured probability.
func (s *SimulatedVerifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	if !s.hasCreds {
		s.warnOnce.Do(func() {
			s.logger.Warn("payment provider credentials missing; answering verification with simulated outcomes")
		})
	}

	s.mu.Lock()
	success := s.rand.Float64() < s.successRate
	s.mu.Unlock()

	status := StatusWaitBuyerPay
	if success {
		status = StatusTradeSuccess
	}
	return &VerifyResult{
		Success:   success,
		OrderID:   req.OrderID,
		Status:    status,
		Timestamp: s.now().UTC(),
	}, nil
}
