package intake

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/banyan-booking/internal/booking"
	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/internal/kv"
)

type recordingCompleter struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *recordingCompleter) CompleteIntake(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return r.err
}

func validForm() Form {
	return Form{
		RealName:              "Li Ming",
		Gender:                "female",
		Age:                   "29",
		Phone:                 "13800000000",
		EmergencyContact:      "Li Hua",
		EmergencyRelation:     "sister",
		EmergencyPhone:        "13900000000",
		IsVoluntary:           true,
		HelpTopics:            []string{"sleep", "work stress"},
		ExtremeThoughts:       ThoughtsNone,
		AgreedConfidentiality: true,
		AgreedEthical:         true,
		SignatureData:         "data:image/png;base64,AAAA",
	}
}

func TestNewHashFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		h := NewHash()
		assert.Regexp(t, `^BANYAN-E-[0-9A-Z]{9}$`, h)
		seen[h] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(kv.NewMemoryStore(), &recordingCompleter{}, nil)

	cases := map[string]func(f *Form){
		"missing signature":   func(f *Form) { f.SignatureData = "" },
		"no confidentiality":  func(f *Form) { f.AgreedConfidentiality = false },
		"no ethics agreement": func(f *Form) { f.AgreedEthical = false },
		"missing emergency":   func(f *Form) { f.EmergencyPhone = "" },
		"bad risk answer":     func(f *Form) { f.ExtremeThoughts = "maybe" },
		"bad gender":          func(f *Form) { f.Gender = "x" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := validForm()
			mutate(&f)
			_, err := svc.Submit(context.Background(), NewBookingPackageID, "s1", f)
			assert.ErrorIs(t, err, ErrInvalidForm)
		})
	}
}

func TestSubmitNewBookingCompletesSession(t *testing.T) {
	store := kv.NewMemoryStore()
	completer := &recordingCompleter{}
	svc := NewService(store, completer, nil)

	sub, err := svc.Submit(context.Background(), NewBookingPackageID, "session-1", validForm())
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, completer.ids)
	assert.True(t, strings.HasPrefix(sub.Hash, "BANYAN-E-"))

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "booking-flow submissions are not stored")

	_, err = svc.Submit(context.Background(), NewBookingPackageID, "", validForm())
	assert.ErrorIs(t, err, ErrSessionRequired)

	completer.err = booking.ErrInvalidTransition
	_, err = svc.Submit(context.Background(), NewBookingPackageID, "session-1", validForm())
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
}

func TestSubmitStoredPackage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := kv.NewMemoryStore()
	changes, err := store.Subscribe(ctx)
	require.NoError(t, err)

	svc := NewService(store, nil, nil)
	pkg, err := svc.Create(ctx, "Li Ming", "1", "Sienna Guo")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pkg.Status)

	sub, err := svc.Submit(ctx, pkg.ID, "", validForm())
	require.NoError(t, err)

	got, err := svc.Get(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Form)
	assert.Equal(t, sub.Hash, got.Form.Hash)

	_, err = svc.Submit(ctx, pkg.ID, "", validForm())
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	_, err = svc.Submit(ctx, "missing", "", validForm())
	assert.ErrorIs(t, err, ErrPackageNotFound)

	for i := 0; i < 2; i++ {
		select {
		case c := <-changes:
			assert.Equal(t, KeyPackages, c.Key)
		case <-time.After(time.Second):
			t.Fatalf("expected change %d", i+1)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := NewService(kv.NewMemoryStore(), nil, nil)
	a, _ := svc.Create(context.Background(), "A", "1", "")
	b, _ := svc.Create(context.Background(), "B", "1", "")

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)

	_, err = svc.Create(context.Background(), " ", "1", "")
	assert.ErrorIs(t, err, ErrInvalidForm)
}

type staticCounselors map[string]counselors.Counselor

func (s staticCounselors) Get(ctx context.Context, id string) (*counselors.Counselor, error) {
	c, ok := s[id]
	if !ok {
		return nil, counselors.ErrCounselorNotFound
	}
	return &c, nil
}

func TestHandler(t *testing.T) {
	completer := &recordingCompleter{}
	svc := NewService(kv.NewMemoryStore(), completer, nil)
	h := NewHandler(svc, staticCounselors{"1": {ID: "1", Name: "Sienna Guo"}}, nil)
	r := chi.NewRouter()
	r.Post("/intake/packages/{id}", h.Submit)
	r.Post("/admin/intake-packages", h.Create)
	r.Get("/admin/intake-packages", h.List)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := serve(http.MethodPost, "/admin/intake-packages", `{"client_name":"Li","counselor_id":"9"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(http.MethodPost, "/admin/intake-packages", `{"client_name":"Li","counselor_id":"1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"counselor_name":"Sienna Guo"`)

	rec = serve(http.MethodGet, "/admin/intake-packages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = serve(http.MethodPost, "/intake/packages/"+NewBookingPackageID, `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(http.MethodPost, "/intake/packages/"+NewBookingPackageID, `{"session_id":"s1","form":{}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := `{"session_id":"s1","form":{"real_name":"Li","phone":"13800000000","emergency_contact":"Hua","emergency_relation":"sister","emergency_phone":"13900000000","extreme_thoughts":"none","agreed_confidentiality":true,"agreed_ethical":true,"signature_data":"sig"}}`
	rec = serve(http.MethodPost, "/intake/packages/"+NewBookingPackageID, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"hash":"BANYAN-E-`)

	completer.err = booking.ErrSessionNotFound
	rec = serve(http.MethodPost, "/intake/packages/"+NewBookingPackageID, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	completer.err = errors.New("boom")
	rec = serve(http.MethodPost, "/intake/packages/"+NewBookingPackageID, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
