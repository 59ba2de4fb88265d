package practice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/banyan-booking/internal/live"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Handler exposes practice settings to clients and the owner console.
type Handler struct {
	service  *Service
	streamer *live.Streamer
	logger   *logging.Logger
}

// NewHandler creates a practice HTTP handler. streamer may be nil when live
// updates are not served.
func NewHandler(service *Service, streamer *live.Streamer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, streamer: streamer, logger: logger}
}

// GET /practice/payment
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Payment(r.Context())
	if err != nil {
		h.internalError(w, "failed to get payment config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PUT /admin/practice/payment
func (h *Handler) PutPayment(w http.ResponseWriter, r *http.Request) {
	var cfg PaymentConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.service.SetPayment(r.Context(), cfg); err != nil {
		h.writeSaveError(w, "failed to save payment config", err)
		return
	}
	h.logger.Info("payment config updated", "account_name", cfg.AccountName)
	writeJSON(w, http.StatusOK, cfg)
}

// GET /practice/charity
func (h *Handler) GetCharity(w http.ResponseWriter, r *http.Request) {
	program, err := h.service.Charity(r.Context())
	if err != nil {
		h.internalError(w, "failed to get charity program", err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// PUT /admin/practice/charity
func (h *Handler) PutCharity(w http.ResponseWriter, r *http.Request) {
	var program CharityProgram
	if err := json.NewDecoder(r.Body).Decode(&program); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.service.SetCharity(r.Context(), program); err != nil {
		h.writeSaveError(w, "failed to save charity program", err)
		return
	}
	h.logger.Info("charity program updated", "program_id", program.ID, "enabled", program.Enabled)
	writeJSON(w, http.StatusOK, program)
}

// CharityUseRequest names the client taking a charity session.
type CharityUseRequest struct {
	Phone string `json:"phone"`
}

// POST /admin/practice/charity/usage/{counselorID}
func (h *Handler) RecordCharityUse(w http.ResponseWriter, r *http.Request) {
	counselorID := chi.URLParam(r, "counselorID")
	var req CharityUseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	program, err := h.service.RecordCharityUse(r.Context(), counselorID, req.Phone)
	switch {
	case err == nil:
	case errors.Is(err, ErrCharityFull), errors.Is(err, ErrCharityDisabled), errors.Is(err, ErrClientLimitReached):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, ErrNotParticipating), errors.Is(err, ErrClientRequired):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	default:
		h.internalError(w, "failed to record charity use", err)
		return
	}
	h.logger.Info("charity use recorded", "counselor_id", counselorID, "usage", program.Usage[counselorID])
	writeJSON(w, http.StatusOK, program)
}

// GET /practice/assistant
func (h *Handler) GetAssistant(w http.ResponseWriter, r *http.Request) {
	qr, err := h.service.Assistant(r.Context())
	if err != nil {
		h.internalError(w, "failed to get assistant qr", err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// PUT /admin/practice/assistant
func (h *Handler) PutAssistant(w http.ResponseWriter, r *http.Request) {
	var qr AssistantQR
	if err := json.NewDecoder(r.Body).Decode(&qr); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.service.SetAssistant(r.Context(), qr); err != nil {
		h.writeSaveError(w, "failed to save assistant qr", err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// Live streams practice changes to an open view.
// GET /practice/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		http.Error(w, `{"error": "live updates disabled"}`, http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, err := h.service.Changes(ctx)
	if err != nil {
		h.internalError(w, "failed to subscribe to practice changes", err)
		return
	}
	frames := make(chan live.Frame)
	go func() {
		defer close(frames)
		for c := range changes {
			select {
			case frames <- live.Frame{Type: "change", Data: c}:
			case <-ctx.Done():
				return
			}
		}
	}()
	if err := h.streamer.Serve(w, r, frames); err != nil {
		h.logger.Warn("practice live upgrade failed", "error", err)
	}
}

func (h *Handler) writeSaveError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrInvalidConfig) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	h.internalError(w, msg, err)
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
