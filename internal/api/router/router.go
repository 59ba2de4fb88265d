package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/banyan-booking/internal/booking"
	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/internal/credits"
	httpmiddleware "github.com/wolfman30/banyan-booking/internal/http/middleware"
	"github.com/wolfman30/banyan-booking/internal/intake"
	"github.com/wolfman30/banyan-booking/internal/matching"
	"github.com/wolfman30/banyan-booking/internal/payments"
	"github.com/wolfman30/banyan-booking/internal/practice"
	"github.com/wolfman30/banyan-booking/internal/pricing"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes out.
type Config struct {
	Logger             *logging.Logger
	Booking            *booking.Handler
	PaymentCheck       *payments.CheckHandler
	Counselors         *counselors.Handler
	Practice           *practice.Handler
	Credits            *credits.Handler
	Intake             *intake.Handler
	Matching           *matching.Handler
	MetricsHandler     http.Handler
	ConsoleJWTSecret   string
	CORSAllowedOrigins []string

	// Manual payment checks are rate limited per client IP.
	CheckRatePerSecond float64
	CheckRateBurst     int
}

// New creates the chi router with every route configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	var checkLimit []func(http.Handler) http.Handler
	if cfg.CheckRatePerSecond > 0 {
		checkLimit = append(checkLimit, httpmiddleware.RateLimit(cfg.CheckRatePerSecond, cfg.CheckRateBurst))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Get("/pricing/packages", packages)
		if cfg.PaymentCheck != nil {
			public.With(checkLimit...).Handle("/api/check-payment", cfg.PaymentCheck)
		}
		if cfg.Booking != nil {
			public.Mount("/sessions", cfg.Booking.Routes(checkLimit...))
			public.Get("/pricing/quote", cfg.Booking.Quote)
		}
		if cfg.Counselors != nil {
			public.Get("/counselors", cfg.Counselors.List)
			public.Get("/counselors/{id}", cfg.Counselors.Get)
		}
		if cfg.Practice != nil {
			public.Route("/practice", func(r chi.Router) {
				r.Get("/payment", cfg.Practice.GetPayment)
				r.Get("/charity", cfg.Practice.GetCharity)
				r.Get("/assistant", cfg.Practice.GetAssistant)
				r.Get("/live", cfg.Practice.Live)
			})
		}
		if cfg.Credits != nil {
			public.Get("/clients/{phone}/credits", cfg.Credits.GetBalance)
		}
		if cfg.Intake != nil {
			public.Post("/intake/packages/{id}", cfg.Intake.Submit)
		}
		if cfg.Matching != nil {
			public.Post("/match", cfg.Matching.Match)
		}
	})

	r.Route("/admin", func(admin chi.Router) {
		// practitioners may read intake packages; everything else is owner-only
		if cfg.Intake != nil {
			admin.With(httpmiddleware.ConsoleJWT(cfg.ConsoleJWTSecret, httpmiddleware.RoleOwner, httpmiddleware.RolePractitioner)).
				Get("/intake-packages", cfg.Intake.List)
		}
		admin.Group(func(owner chi.Router) {
			owner.Use(httpmiddleware.ConsoleJWT(cfg.ConsoleJWTSecret, httpmiddleware.RoleOwner))
			if cfg.Intake != nil {
				owner.Post("/intake-packages", cfg.Intake.Create)
			}
			if cfg.Practice != nil {
				owner.Put("/practice/payment", cfg.Practice.PutPayment)
				owner.Put("/practice/charity", cfg.Practice.PutCharity)
				owner.Put("/practice/assistant", cfg.Practice.PutAssistant)
				owner.Post("/practice/charity/usage/{counselorID}", cfg.Practice.RecordCharityUse)
			}
			if cfg.Counselors != nil {
				owner.Put("/counselors/{id}", cfg.Counselors.Put)
			}
			if cfg.Credits != nil {
				owner.Put("/clients/{phone}/credits", cfg.Credits.SetBalance)
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func packages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pricing.Packages())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
