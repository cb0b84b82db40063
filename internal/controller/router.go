package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/infrastructure/config"
	"github.com/paygate/paygate/internal/infrastructure/observability"
	customMW "github.com/paygate/paygate/internal/middleware"
)

type RouterDeps struct {
	Gateway payment.Gateway
	Health  *HealthController
	Metrics *observability.Metrics
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
	Server   config.ServerConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(customMW.SecurityHeaders())
	if deps.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(deps.Server.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: deps.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := deps.Health
	if healthH == nil {
		healthH = NewHealthController("")
	}
	paymentH := NewPaymentController(deps.Gateway)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Server.RateLimitPerMinute > 0 {
			r.Use(customMW.RateLimit(deps.Server.RateLimitPerMinute))
		}
		if deps.Server.Auth.JWTSecret != "" {
			r.Use(customMW.RequireAuth(deps.Server.Auth.JWTSecret))
		}

		r.Post("/payments", paymentH.CreatePayment)
		r.Get("/payments/{id}", paymentH.GetPayment)
		r.Post("/payments/{id}/refund", paymentH.RefundPayment)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "route_not_found"})
	})

	return r
}
