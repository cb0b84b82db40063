package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/infrastructure/config"
	"github.com/paygate/paygate/internal/infrastructure/observability"
	"github.com/paygate/paygate/internal/providers"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Gateway  payment.Gateway
	Provider string

	tracer *sdktrace.TracerProvider
}

// New loads configuration and builds an App from it.
func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg, serviceName, metricsNamespace, os.Stdout)
}

// NewWithConfig wires logging, tracing, metrics and the payment gateway, and
// initializes the gateway. A failed initialization is returned as is; the
// caller is expected to stop.
func NewWithConfig(ctx context.Context, cfg *config.Config, serviceName, metricsNamespace string, logOutput io.Writer) (*App, error) {
	logger := observability.InitLogger(serviceName, cfg.Observability.LogLevel, logOutput).
		With().Str("instance_id", cfg.InstanceID).Logger()
	logger.Info().Msg("Starting")

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Provider: cfg.Payment.Provider,
	}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	if cfg.Observability.EnableMetrics {
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.Metrics = observability.NewMetrics(metricsNamespace, app.Registry)
		logger.Info().Msg("Metrics initialized")
	}

	factory := providers.NewFactory(cfg.Payment, app.Metrics, logger)
	gw, err := factory.Build()
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("build payment gateway: %w", err)
	}
	if err := gw.Initialize(ctx); err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("initialize %s gateway: %w", factory.Name(), err)
	}
	app.Gateway = gw

	logger.Info().
		Str("provider", factory.Name()).
		Bool("circuit_breaker", cfg.Payment.CircuitBreaker.Enabled).
		Msg("Payment gateway ready")

	return app, nil
}

// Close flushes pending spans.
func (a *App) Close(ctx context.Context) {
	if a.tracer == nil {
		return
	}
	if err := observability.Shutdown(ctx, a.tracer); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to flush traces")
	}
}
