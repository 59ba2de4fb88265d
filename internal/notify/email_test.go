package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "desk@banyan.example"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_Defaults(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "desk@banyan.example"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Banyan Counseling" {
		t.Errorf("expected default from name, got %q", sender.fromName)
	}
	if sender.host != "https://api.sendgrid.com" {
		t.Errorf("expected default host, got %q", sender.host)
	}
}

func TestSendGridSender_Send(t *testing.T) {
	var gotAuth, gotPath string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "key-1", FromEmail: "desk@banyan.example", Host: srv.URL + "/"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "owner@banyan.example", Subject: "Hello", Body: "plain"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "Bearer key-1" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotPath != "/v3/mail/send" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if payload["subject"] != "Hello" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad"}]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "key-1", Host: srv.URL}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "owner@banyan.example"}); err == nil {
		t.Fatal("expected error on 400 response")
	}
	if err := sender.Send(context.Background(), EmailMessage{}); err == nil {
		t.Fatal("expected error without recipient")
	}
}

func TestSendGridSender_NotConfigured(t *testing.T) {
	var sender *SendGridSender
	if err := sender.Send(context.Background(), EmailMessage{To: "a@b.c"}); err == nil {
		t.Error("expected error when sender is not configured")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	if err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@b.c", Subject: "s"}); err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}
