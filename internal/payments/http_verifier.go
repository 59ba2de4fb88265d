package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// HTTPVerifier calls a remote check-payment endpoint.
type HTTPVerifier struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// NewHTTPVerifier builds a verifier for endpoint. A nil client gets a
// default with the given timeout.
func NewHTTPVerifier(endpoint string, client *http.Client, timeout time.Duration, logger *logging.Logger) *HTTPVerifier {
	if client == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPVerifier{
		endpoint: strings.TrimSpace(endpoint),
		client:   client,
		logger:   logger,
	}
}

// Verify posts {orderId, phone} and decodes the gateway answer. Every
// transport-level failure is reported as ErrGatewayUnavailable.
func (v *HTTPVerifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("payments: marshal verify request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payments: build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("payment gateway returned error status", "status", resp.StatusCode, "order_id", req.OrderID)
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var result VerifyResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrGatewayUnavailable, err)
	}
	if result.OrderID == "" {
		result.OrderID = req.OrderID
	}
	return &result, nil
}
