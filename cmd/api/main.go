package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/banyan-booking/internal/api/router"
	"github.com/wolfman30/banyan-booking/internal/app/bootstrap"
	"github.com/wolfman30/banyan-booking/internal/booking"
	appconfig "github.com/wolfman30/banyan-booking/internal/config"
	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/internal/credits"
	"github.com/wolfman30/banyan-booking/internal/intake"
	"github.com/wolfman30/banyan-booking/internal/kv"
	"github.com/wolfman30/banyan-booking/internal/live"
	"github.com/wolfman30/banyan-booking/internal/matching"
	"github.com/wolfman30/banyan-booking/internal/notify"
	"github.com/wolfman30/banyan-booking/internal/observability/metrics"
	"github.com/wolfman30/banyan-booking/internal/payments"
	"github.com/wolfman30/banyan-booking/internal/practice"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting banyan booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	store := bootstrap.BuildStore(redisClient, logger)

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	ledger := bootstrap.BuildLedger(pool, logger)

	publisher, closePublisher := bootstrap.BuildPublisher(cfg, logger)
	defer closePublisher()

	metricsHandler, bookingMetrics := setupMetrics()
	verifier := bootstrap.BuildVerifier(cfg, logger)
	directory := counselors.NewDirectory(store, logger)
	notifier := notify.NewBookingNotifier(publisher, bootstrap.BuildEmailSender(cfg, logger), cfg.PracticeNotifyEmail, logger)

	manager := booking.NewManager(directory, booking.Dependencies{
		Verifier:     verifier,
		Ledger:       ledger,
		Notifier:     notifier,
		Metrics:      bookingMetrics,
		PollInterval: cfg.PaymentPollInterval,
		CheckTimeout: cfg.PaymentCheckTimeout,
		Logger:       logger,
	}, cfg.SessionIdleTTL)
	go manager.Run(ctx)

	practiceService := practice.NewService(store, logger)
	go watchPractice(ctx, practiceService, logger)

	streamer := live.NewStreamer(cfg.CORSAllowedOrigins, logger)
	routerCfg := &router.Config{
		Logger:             logger,
		Booking:            booking.NewHandler(manager, directory, streamer, logger),
		PaymentCheck:       payments.NewCheckHandler(verifier, logger),
		Counselors:         counselors.NewHandler(directory, logger),
		Practice:           practice.NewHandler(practiceService, streamer, logger),
		Credits:            credits.NewHandler(ledger, logger),
		Intake:             intake.NewHandler(intake.NewService(store, manager, logger), directory, logger),
		MetricsHandler:     metricsHandler,
		ConsoleJWTSecret:   cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CheckRatePerSecond: cfg.CheckRatePerSecond,
		CheckRateBurst:     cfg.CheckRateBurst,
	}
	matcher, err := bootstrap.BuildMatcher(ctx, cfg, directory, logger)
	if err != nil {
		logger.Error("failed to initialize counselor matching", "error", err)
	} else if matcher != nil {
		defer matcher.Close()
		routerCfg.Matching = matching.NewHandler(matcher, logger)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		// no WriteTimeout: live websocket streams are long-lived
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		manager.Shutdown()
		os.Exit(1)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	manager.Shutdown()
	logger.Info("server stopped")
}

// setupMetrics builds a dedicated registry with runtime collectors.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), metrics.NewBookingMetrics(reg)
}

func watchPractice(ctx context.Context, service *practice.Service, logger *logging.Logger) {
	err := service.Watch(ctx, func(c kv.Change) {
		logger.Info("practice configuration changed", "key", c.Key, "op", c.Op)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("practice watch stopped", "error", err)
	}
}
