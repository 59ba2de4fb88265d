package matching

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Handler serves POST /match.
type Handler struct {
	matcher Matcher
	logger  *logging.Logger
}

func NewHandler(matcher Matcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{matcher: matcher, logger: logger}
}

type matchRequest struct {
	Description string `json:"description"`
}

// Match handles POST /match.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	if h.matcher == nil {
		http.Error(w, `{"error": "matching unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	var req matchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	result, err := h.matcher.Match(r.Context(), req.Description)
	switch {
	case errors.Is(err, ErrEmptyDescription):
		http.Error(w, `{"error": "description is required"}`, http.StatusBadRequest)
		return
	case errors.Is(err, ErrNoMatch):
		http.Error(w, `{"error": "no recommendation available"}`, http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.logger.Error("counselor match failed", "error", err)
		http.Error(w, `{"error": "matching failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
