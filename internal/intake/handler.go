package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/banyan-booking/internal/booking"
	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// CounselorSource resolves counselor names for new packages.
type CounselorSource interface {
	Get(ctx context.Context, id string) (*counselors.Counselor, error)
}

// Handler serves intake endpoints.
type Handler struct {
	service    *Service
	counselors CounselorSource
	logger     *logging.Logger
}

func NewHandler(service *Service, source CounselorSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, counselors: source, logger: logger}
}

type submitRequest struct {
	SessionID string `json:"session_id"`
	Form      Form   `json:"form"`
}

// Submit handles POST /intake/packages/{id}.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	sub, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), req.SessionID, req.Form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type createRequest struct {
	ClientName  string `json:"client_name"`
	CounselorID string `json:"counselor_id"`
}

// Create handles POST /admin/intake-packages.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	c, err := h.counselors.Get(r.Context(), req.CounselorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	pkg, err := h.service.Create(r.Context(), req.ClientName, c.ID, c.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

// List handles GET /admin/intake-packages.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidForm), errors.Is(err, ErrSessionRequired):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrPackageNotFound), errors.Is(err, booking.ErrSessionNotFound),
		errors.Is(err, counselors.ErrCounselorNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrAlreadyCompleted), errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("intake request failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
