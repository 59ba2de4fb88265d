package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/clients/{phone}/credits", h.GetBalance)
	r.Put("/admin/clients/{phone}/credits", h.SetBalance)
	return r
}

func TestHandlerGetBalance(t *testing.T) {
	ledger := NewMemoryLedger()
	_, _, err := ledger.Credit(context.Background(), "13800000000", "BY-1", 10)
	require.NoError(t, err)

	router := newTestRouter(NewHandler(ledger, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients/13800000000/credits", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body balanceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 10, body.Balance)
}

func TestHandlerSetBalance(t *testing.T) {
	ledger := NewMemoryLedger()
	router := newTestRouter(NewHandler(ledger, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/clients/p/credits", strings.NewReader(`{"balance":4}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	balance, _ := ledger.Balance(context.Background(), "p")
	assert.Equal(t, 4, balance)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/clients/p/credits", strings.NewReader(`{"balance":-1}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/clients/p/credits", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
