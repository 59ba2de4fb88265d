package bootstrap

import (
	"context"

	appconfig "github.com/wolfman30/banyan-booking/internal/config"
	"github.com/wolfman30/banyan-booking/internal/events"
	"github.com/wolfman30/banyan-booking/internal/matching"
	"github.com/wolfman30/banyan-booking/internal/notify"
	"github.com/wolfman30/banyan-booking/internal/payments"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// BuildVerifier returns the remote gateway client, or the simulated gateway
// when no verification URL is configured.
func BuildVerifier(cfg *appconfig.Config, logger *logging.Logger) payments.Verifier {
	logger = logging.OrDefault(logger)
	if cfg.UsesSimulatedGateway() {
		logger.Info("using simulated payment gateway", "success_rate", cfg.PaymentSimulatedSuccessRate)
		return payments.NewSimulatedVerifier(payments.SimulatedConfig{
			SuccessRate: cfg.PaymentSimulatedSuccessRate,
			MerchantID:  cfg.MyBankMerchantID,
			APIKey:      cfg.MyBankAPIKey,
		}, logger)
	}
	logger.Info("using remote payment gateway", "url", cfg.PaymentVerifyURL)
	return payments.NewHTTPVerifier(cfg.PaymentVerifyURL, nil, cfg.PaymentCheckTimeout, logger)
}

// BuildPublisher connects to NATS when configured and falls back to logging
// events otherwise. The returned close func is never nil.
func BuildPublisher(cfg *appconfig.Config, logger *logging.Logger) (events.Publisher, func()) {
	logger = logging.OrDefault(logger)
	if cfg.NATSURL == "" {
		return events.NewLogPublisher(logger), func() {}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Warn("nats unavailable; logging events instead", "error", err)
		return events.NewLogPublisher(logger), func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("nats drain failed", "error", err)
		}
	}
}

// BuildEmailSender returns SendGrid when an API key is set.
func BuildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender
	}
	return notify.NewStubEmailSender(logger)
}

// BuildMatcher wires AI matching. It returns nil when no API key is set.
func BuildMatcher(ctx context.Context, cfg *appconfig.Config, directory matching.CounselorLister, logger *logging.Logger) (*matching.GeminiMatcher, error) {
	if cfg.GeminiAPIKey == "" {
		logging.OrDefault(logger).Info("GEMINI_API_KEY not set; counselor matching disabled")
		return nil, nil
	}
	return matching.NewGeminiMatcher(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, directory, logger)
}
