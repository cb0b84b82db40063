package providers

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/infrastructure/config"
	"github.com/paygate/paygate/internal/infrastructure/observability"
	"github.com/paygate/paygate/internal/providers/stripe"
)

// Builder constructs a bare gateway for one provider.
type Builder func(cfg config.PaymentConfig, logger zerolog.Logger) (payment.Gateway, error)

// Factory builds the one gateway the process talks to. Choosing a provider
// here is configuration, not routing: the choice holds for the lifetime of
// the process.
type Factory struct {
	cfg      config.PaymentConfig
	metrics  *observability.Metrics
	logger   zerolog.Logger
	builders map[string]Builder
}

// NewFactory creates a factory with the stripe and mock providers
// registered. metrics may be nil.
func NewFactory(cfg config.PaymentConfig, metrics *observability.Metrics, logger zerolog.Logger) *Factory {
	f := &Factory{
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		builders: make(map[string]Builder),
	}
	f.Register(config.ProviderStripe, buildStripe)
	f.Register(config.ProviderMock, buildMock)
	return f
}

// Register adds or replaces the builder for name.
func (f *Factory) Register(name string, b Builder) {
	f.builders[name] = b
}

// Name returns the configured provider.
func (f *Factory) Name() string {
	return f.cfg.Provider
}

// Providers lists the registered provider names.
func (f *Factory) Providers() []string {
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the configured gateway wrapped in instrumentation and,
// when enabled, a circuit breaker. The returned gateway is not initialized.
func (f *Factory) Build() (payment.Gateway, error) {
	name := f.cfg.Provider
	build, ok := f.builders[name]
	if !ok {
		e := domainErrors.NewGatewayError(domainErrors.ErrInitialization, name, "initialize", nil)
		e.Message = fmt.Sprintf("unknown provider %q", name)
		return nil, e
	}

	gw, err := build(f.cfg, observability.Component(f.logger, name))
	if err != nil {
		return nil, fmt.Errorf("build %s gateway: %w", name, err)
	}

	if f.cfg.CircuitBreaker.Enabled {
		gw = NewBreaker(gw, name, f.cfg.CircuitBreaker, f.metrics)
	}
	return Instrument(gw, name, f.metrics), nil
}

func buildStripe(cfg config.PaymentConfig, logger zerolog.Logger) (payment.Gateway, error) {
	opts := []stripe.Option{
		stripe.WithLogger(logger),
		stripe.WithMaxNetworkRetries(cfg.Stripe.MaxNetworkRetries),
	}
	if cfg.Stripe.HTTPTimeout > 0 {
		opts = append(opts, stripe.WithHTTPTimeout(cfg.Stripe.HTTPTimeout))
	}
	if cfg.Stripe.BaseURL != "" {
		opts = append(opts, stripe.WithBaseURL(cfg.Stripe.BaseURL))
	}
	if logger.GetLevel() <= zerolog.DebugLevel {
		opts = append(opts, stripe.WithSDKLogger(logger))
	}
	return stripe.New(cfg.Stripe.SecretKey, opts...), nil
}

func buildMock(cfg config.PaymentConfig, _ zerolog.Logger) (payment.Gateway, error) {
	return NewMockProvider(
		WithLatency(cfg.Mock.Latency),
		WithFailureRate(cfg.Mock.FailureRate),
	), nil
}
