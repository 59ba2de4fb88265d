package counselors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Handler serves the counselor directory.
type Handler struct {
	directory *Directory
	logger    *logging.Logger
}

func NewHandler(directory *Directory, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{directory: directory, logger: logger}
}

// List handles GET /counselors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.directory.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list counselors", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /counselors/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.directory.Get(r.Context(), id)
	if errors.Is(err, ErrCounselorNotFound) {
		http.Error(w, `{"error": "counselor not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get counselor", "counselor_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Put handles PUT /admin/counselors/{id}.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var c Counselor
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	c.ID = chi.URLParam(r, "id")
	if len(c.Slots) == 0 {
		c.Slots = WeeklySlots()
	}
	if err := h.directory.Upsert(r.Context(), c); err != nil {
		if errors.Is(err, ErrInvalidCounselor) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to save counselor", "counselor_id", c.ID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
