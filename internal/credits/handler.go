package credits

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Handler exposes client session balances.
type Handler struct {
	ledger Ledger
	logger *logging.Logger
}

// NewHandler creates a credits HTTP handler.
func NewHandler(ledger Ledger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{ledger: ledger, logger: logger}
}

type balanceResponse struct {
	Phone   string `json:"phone"`
	Balance int    `json:"balance"`
}

// GetBalance returns the prepaid session count for a client.
// GET /clients/{phone}/credits
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	phone := NormalizePhone(chi.URLParam(r, "phone"))
	if phone == "" {
		http.Error(w, `{"error": "phone required"}`, http.StatusBadRequest)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), phone)
	if err != nil {
		h.logger.Error("failed to read credit balance", "phone", phone, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Phone: phone, Balance: balance})
}

// SetBalanceRequest overrides a client balance from the owner console.
type SetBalanceRequest struct {
	Balance *int `json:"balance"`
}

// SetBalance overwrites the balance for a client.
// PUT /admin/clients/{phone}/credits
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	phone := NormalizePhone(chi.URLParam(r, "phone"))
	if phone == "" {
		http.Error(w, `{"error": "phone required"}`, http.StatusBadRequest)
		return
	}
	var req SetBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Balance == nil {
		http.Error(w, `{"error": "balance required"}`, http.StatusBadRequest)
		return
	}
	if err := h.ledger.Set(r.Context(), phone, *req.Balance); err != nil {
		if errors.Is(err, ErrNegativeBalance) {
			http.Error(w, `{"error": "balance must not be negative"}`, http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("failed to set credit balance", "phone", phone, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("credit balance overridden", "phone", phone, "balance", *req.Balance)
	writeJSON(w, http.StatusOK, balanceResponse{Phone: phone, Balance: *req.Balance})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
