package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	CORSAllowedOrigins []string
	AdminJWTSecret     string

	// Booking / payment verification
	PaymentPollInterval         time.Duration
	PaymentCheckTimeout         time.Duration
	PaymentVerifyURL            string
	PaymentSimulatedSuccessRate float64
	MyBankMerchantID            string
	MyBankAPIKey                string
	SessionIdleTTL              time.Duration
	CheckRatePerSecond          float64
	CheckRateBurst              int

	// AI matching
	GeminiAPIKey  string
	GeminiModelID string

	// Events and notifications
	NATSURL             string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	PracticeNotifyEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		PaymentPollInterval:         getEnvAsDuration("PAYMENT_POLL_INTERVAL", 3*time.Second),
		PaymentCheckTimeout:         getEnvAsDuration("PAYMENT_CHECK_TIMEOUT", 10*time.Second),
		PaymentVerifyURL:            getEnv("PAYMENT_VERIFY_URL", ""),
		PaymentSimulatedSuccessRate: getEnvAsFloat("PAYMENT_SIMULATED_SUCCESS_RATE", 0.3),
		MyBankMerchantID:            getEnv("MYBANK_MERCHANT_ID", ""),
		MyBankAPIKey:                getEnv("MYBANK_API_KEY", ""),
		SessionIdleTTL:              getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
		CheckRatePerSecond:          getEnvAsFloat("CHECK_RATE_PER_SEC", 1),
		CheckRateBurst:              getEnvAsInt("CHECK_RATE_BURST", 5),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		NATSURL:             getEnv("NATS_URL", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Banyan Counseling"),
		PracticeNotifyEmail: getEnv("PRACTICE_NOTIFY_EMAIL", ""),
	}
}

// UsesSimulatedGateway reports whether payment checks are answered in-process.
func (c *Config) UsesSimulatedGateway() bool {
	return strings.TrimSpace(c.PaymentVerifyURL) == ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
