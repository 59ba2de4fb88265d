package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/internal/live"
	"github.com/wolfman30/banyan-booking/internal/pricing"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Handler exposes booking sessions over HTTP.
type Handler struct {
	manager   *Manager
	directory CounselorSource
	streamer  *live.Streamer
	validate  *validator.Validate
	logger    *logging.Logger
}

// NewHandler creates a booking handler. streamer may be nil.
func NewHandler(manager *Manager, directory CounselorSource, streamer *live.Streamer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		manager:   manager,
		directory: directory,
		streamer:  streamer,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Routes returns the /sessions router. checkMW wraps the manual payment
// check route only.
func (h *Handler) Routes(checkMW ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Open)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Post("/slot", h.SelectSlot)
		r.Post("/advance", h.Advance)
		r.Post("/back", h.Back)
		r.Put("/package", h.SetPackage)
		r.With(checkMW...).Post("/payment/check", h.CheckPayment)
		r.Post("/intake", h.CompleteIntake)
		r.Get("/live", h.Live)
	})
	return r
}

// OpenRequest starts a booking.
type OpenRequest struct {
	CounselorID string `json:"counselor_id" validate:"required"`
	Phone       string `json:"phone" validate:"required,min=5,max=32"`
}

// Open handles POST /sessions.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.manager.Open(r.Context(), req.CounselorID, req.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// Get handles GET /sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Close handles DELETE /sessions/{id}.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectSlot handles POST /sessions/{id}/slot.
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var slot Slot
	if !h.decode(w, r, &slot) {
		return
	}
	h.apply(w, s, s.SelectSlot(slot))
}

// Advance handles POST /sessions/{id}/advance.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.apply(w, s, s.Advance())
}

// Back handles POST /sessions/{id}/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.apply(w, s, s.Back())
}

// PackageRequest selects the package on the packages step.
type PackageRequest struct {
	SessionCount  int    `json:"session_count" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=qr transfer"`
}

// SetPackage handles PUT /sessions/{id}/package.
func (h *Handler) SetPackage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PackageRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.apply(w, s, s.SetPackage(req.SessionCount, req.PaymentMethod))
}

// CheckPayment handles POST /sessions/{id}/payment/check.
func (h *Handler) CheckPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := s.CheckPayment(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompleteIntake handles POST /sessions/{id}/intake.
func (h *Handler) CompleteIntake(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.apply(w, s, s.CompleteIntake(r.Context()))
}

// Live streams snapshots over a websocket.
// GET /sessions/{id}/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.streamer == nil {
		http.Error(w, `{"error": "live updates disabled"}`, http.StatusNotFound)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snaps := s.Subscribe(ctx)
	frames := make(chan live.Frame)
	go func() {
		defer close(frames)
		for snap := range snaps {
			select {
			case frames <- live.Frame{Type: "snapshot", Data: snap}:
			case <-ctx.Done():
				return
			}
		}
	}()
	if err := h.streamer.Serve(w, r, frames); err != nil {
		h.logger.Warn("booking live upgrade failed", "session_id", s.ID(), "error", err)
	}
}

// Quote handles GET /pricing/quote?sessions=N&counselor_id=ID, or
// unit_price_cents instead of counselor_id.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := strconv.Atoi(q.Get("sessions"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sessions must be an integer"})
		return
	}

	var unit int64
	if id := q.Get("counselor_id"); id != "" && h.directory != nil {
		c, err := h.directory.Get(r.Context(), id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		unit = c.PriceCents
	} else {
		unit, err = strconv.ParseInt(q.Get("unit_price_cents"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "counselor_id or unit_price_cents required"})
			return
		}
	}

	quote, err := pricing.Compute(count, unit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) apply(w http.ResponseWriter, s *Session, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, counselors.ErrCounselorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCheckInProgress),
		errors.Is(err, ErrPaymentSettling), errors.Is(err, ErrOrderSuperseded), errors.Is(err, ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, ErrSlotRequired), errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrInvalidPaymentMethod), errors.Is(err, ErrMissingContact),
		errors.Is(err, pricing.ErrSessionCountOutOfRange), errors.Is(err, pricing.ErrInvalidUnitPrice):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("booking request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
