package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/banyan-booking/internal/kv"
	"github.com/wolfman30/banyan-booking/internal/practice"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

func TestSetupMetricsExposesBookingMetrics(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveTransition("profile", "packages")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "banyan_booking_stage_transitions_total") {
		t.Fatalf("expected transition counter to be exported")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected runtime collectors")
	}
}

func TestWatchPracticeReturnsOnCancel(t *testing.T) {
	service := practice.NewService(kv.NewMemoryStore(), logging.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchPractice(ctx, service, logging.New("error"))
		close(done)
	}()

	if err := service.SetAssistant(context.Background(), practice.AssistantQR{ImageURL: "https://cdn.banyan.example/a.png"}); err != nil {
		t.Fatalf("set assistant: %v", err)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchPractice did not return")
	}
}
