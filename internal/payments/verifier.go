package payments

import (
	"context"
	"errors"
	"time"
)

const (
	// StatusTradeSuccess is reported once funds are confirmed.
	StatusTradeSuccess = "TRADE_SUCCESS"
	// StatusWaitBuyerPay is reported while the order is still unpaid.
	StatusWaitBuyerPay = "WAIT_BUYER_PAY"
)

var (
	// ErrGatewayUnavailable wraps transport failures: non-2xx responses,
	// timeouts and malformed bodies.
	ErrGatewayUnavailable = errors.New("payments: verification gateway unavailable")

	// ErrMissingOrderID is returned when a verification request has no order id.
	ErrMissingOrderID = errors.New("payments: order id is required")
)

// VerifyRequest asks the gateway whether an order has been paid.
type VerifyRequest struct {
	OrderID string `json:"orderId"`
	Phone   string `json:"phone"`
}

// VerifyResult is the gateway answer. Only Success drives the booking flow;
// Status and Timestamp are informational.
type VerifyResult struct {
	Success   bool      `json:"success"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Verifier checks order payment status against the system of record.
// Implementations must return ctx.Err() without contacting the gateway when
// ctx is already done; the poller relies on this after a session leaves
// payment.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, req VerifyRequest) (*VerifyResult, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	return f(ctx, req)
}
