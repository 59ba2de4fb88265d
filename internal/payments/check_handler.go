package payments

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// CheckHandler serves the payment verification endpoint consumed by the
// booking flow (and by HTTPVerifier when the gateway runs out of process).
type CheckHandler struct {
	verifier Verifier
	logger   *logging.Logger
}

// NewCheckHandler wraps a verifier in an HTTP handler.
func NewCheckHandler(verifier Verifier, logger *logging.Logger) *CheckHandler {
	if verifier == nil {
		panic("payments: verifier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckHandler{verifier: verifier, logger: logger}
}

// ServeHTTP handles POST /api/check-payment.
func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method Not Allowed"})
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid payload"})
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "orderId is required"})
		return
	}

	result, err := h.verifier.Verify(r.Context(), req)
	if err != nil {
		h.logger.Error("payment verification failed", "error", err, "order_id", req.OrderID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Payment Verification Error"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
