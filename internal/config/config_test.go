package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PAYMENT_POLL_INTERVAL", "")
	t.Setenv("PAYMENT_VERIFY_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.PaymentPollInterval != 3*time.Second {
		t.Fatalf("expected 3s poll interval, got %s", cfg.PaymentPollInterval)
	}
	if cfg.PaymentSimulatedSuccessRate != 0.3 {
		t.Fatalf("expected default simulated success rate, got %v", cfg.PaymentSimulatedSuccessRate)
	}
	if !cfg.UsesSimulatedGateway() {
		t.Fatalf("expected simulated gateway when PAYMENT_VERIFY_URL is empty")
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("PAYMENT_POLL_INTERVAL", "5s")
	t.Setenv("PAYMENT_VERIFY_URL", "https://pay.example.com/api/check-payment")
	t.Setenv("PAYMENT_SIMULATED_SUCCESS_RATE", "0.9")
	t.Setenv("SESSION_IDLE_TTL", "30m")
	t.Setenv("CHECK_RATE_BURST", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.PaymentPollInterval != 5*time.Second {
		t.Fatalf("expected poll interval override, got %s", cfg.PaymentPollInterval)
	}
	if cfg.UsesSimulatedGateway() {
		t.Fatalf("expected remote gateway when PAYMENT_VERIFY_URL is set")
	}
	if cfg.PaymentSimulatedSuccessRate != 0.9 {
		t.Fatalf("expected success rate override, got %v", cfg.PaymentSimulatedSuccessRate)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("expected idle ttl override, got %s", cfg.SessionIdleTTL)
	}
	if cfg.CheckRateBurst != 2 {
		t.Fatalf("expected burst override, got %d", cfg.CheckRateBurst)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAYMENT_CHECK_TIMEOUT", "soon")
	t.Setenv("CHECK_RATE_PER_SEC", "fast")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.PaymentCheckTimeout != 10*time.Second {
		t.Fatalf("expected default check timeout, got %s", cfg.PaymentCheckTimeout)
	}
	if cfg.CheckRatePerSecond != 1 {
		t.Fatalf("expected default rate, got %v", cfg.CheckRatePerSecond)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls disabled")
	}
}
