package providers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/infrastructure/config"
	"github.com/paygate/paygate/internal/infrastructure/observability"
	"github.com/paygate/paygate/internal/providers/stripe"
	"github.com/paygate/paygate/internal/testutil"
)

func newTestMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	return observability.NewMetrics("test", prometheus.NewRegistry())
}

func mockConfig() config.PaymentConfig {
	return config.PaymentConfig{Provider: config.ProviderMock}
}

func transportErr(op string) error {
	return domainErrors.NewGatewayError(domainErrors.ErrTransport, "test", op, fmt.Errorf("connection refused"))
}

func providerErr(op string, status int) error {
	return &domainErrors.GatewayError{
		Kind:       domainErrors.ErrProvider,
		Op:         op,
		Provider:   "test",
		StatusCode: status,
		Code:       "card_declined",
	}
}

// --- Factory ---

func TestNewFactory_RegistersProviders(t *testing.T) {
	factory := NewFactory(mockConfig(), nil, zerolog.Nop())

	assert.Equal(t, []string{"mock", "stripe"}, factory.Providers())
	assert.Equal(t, "mock", factory.Name())
}

func TestFactory_Build_Mock(t *testing.T) {
	factory := NewFactory(mockConfig(), newTestMetrics(t), zerolog.Nop())

	gw, err := factory.Build()
	require.NoError(t, err)

	instrumented, ok := gw.(*Instrumented)
	require.True(t, ok)
	assert.IsType(t, &MockProvider{}, instrumented.next)

	ctx := context.Background()
	require.NoError(t, gw.Initialize(ctx))
	rec, err := gw.CreatePayment(ctx, payment.CreatePaymentRequest{Amount: 1000, Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rec.Amount)
}

func TestFactory_Build_Stripe(t *testing.T) {
	cfg := config.PaymentConfig{
		Provider: config.ProviderStripe,
		Stripe: config.StripeConfig{
			SecretKey:         "sk_test_123",
			BaseURL:           "http://localhost:12111",
			MaxNetworkRetries: 0,
			HTTPTimeout:       5 * time.Second,
		},
	}
	factory := NewFactory(cfg, nil, zerolog.Nop())

	gw, err := factory.Build()
	require.NoError(t, err)

	instrumented := gw.(*Instrumented)
	assert.IsType(t, &stripe.Adapter{}, instrumented.next)
	assert.Equal(t, "stripe", factory.Name())
}

func TestFactory_Build_WithCircuitBreaker(t *testing.T) {
	cfg := mockConfig()
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
	factory := NewFactory(cfg, nil, zerolog.Nop())

	gw, err := factory.Build()
	require.NoError(t, err)

	instrumented := gw.(*Instrumented)
	breaker, ok := instrumented.next.(*Breaker)
	require.True(t, ok)
	assert.IsType(t, &MockProvider{}, breaker.next)
}

func TestFactory_Build_UnknownProvider(t *testing.T) {
	factory := NewFactory(config.PaymentConfig{Provider: "paypal"}, nil, zerolog.Nop())

	gw, err := factory.Build()
	assert.Nil(t, gw)
	assert.ErrorIs(t, err, domainErrors.ErrInitialization)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestFactory_Register(t *testing.T) {
	mock := testutil.NewMockGateway()
	factory := NewFactory(config.PaymentConfig{Provider: "custom"}, nil, zerolog.Nop())
	factory.Register("custom", func(config.PaymentConfig, zerolog.Logger) (payment.Gateway, error) {
		return mock, nil
	})

	gw, err := factory.Build()
	require.NoError(t, err)

	_, err = gw.VerifyPayment(context.Background(), "pi_9")
	require.NoError(t, err)
	require.Len(t, mock.Calls(), 1)
	assert.Equal(t, "pi_9", mock.Calls()[0].PaymentID)
}

func TestFactory_Build_BuilderError(t *testing.T) {
	factory := NewFactory(config.PaymentConfig{Provider: "broken"}, nil, zerolog.Nop())
	factory.Register("broken", func(config.PaymentConfig, zerolog.Logger) (payment.Gateway, error) {
		return nil, fmt.Errorf("no credentials")
	})

	_, err := factory.Build()
	assert.ErrorContains(t, err, "build broken gateway: no credentials")
}

// --- Outcome ---

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{domainErrors.NewGatewayError(domainErrors.ErrNotFound, "p", "op", nil), OutcomeNotFound},
		{providerErr("op", 402), OutcomeProviderError},
		{transportErr("op"), OutcomeTransportError},
		{domainErrors.NewGatewayError(domainErrors.ErrInitialization, "p", "op", nil), OutcomeInitError},
		{fmt.Errorf("something else"), OutcomeUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

// --- Instrumented ---

func TestInstrumented_RecordsMetrics(t *testing.T) {
	metrics := newTestMetrics(t)
	mock := testutil.NewMockGateway()
	mock.VerifyPaymentFunc = func(ctx context.Context, id string) (*payment.PaymentRecord, error) {
		return nil, domainErrors.NewGatewayError(domainErrors.ErrNotFound, "mock", "verify_payment", nil)
	}
	gw := Instrument(mock, "mock", metrics)
	ctx := context.Background()

	_, err := gw.CreatePayment(ctx, payment.CreatePaymentRequest{Amount: 100, Currency: "usd"})
	require.NoError(t, err)
	_, err = gw.VerifyPayment(ctx, "pi_unknown")
	require.ErrorIs(t, err, domainErrors.ErrNotFound)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.GatewayCalls.WithLabelValues("mock", "create_payment", OutcomeOK)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.GatewayCalls.WithLabelValues("mock", "verify_payment", OutcomeNotFound)))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(metrics.GatewayInFlight.WithLabelValues("mock")))
	assert.Equal(t, 2, promtestutil.CollectAndCount(metrics.GatewayCallDuration))
}

func TestInstrumented_PassesResultsThrough(t *testing.T) {
	mock := testutil.NewMockGateway()
	gw := Instrument(mock, "mock", nil)

	refund, err := gw.RefundPayment(context.Background(), "pi_1", payment.PartialRefund(250))
	require.NoError(t, err)
	assert.Equal(t, int64(250), refund.Amount)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	n, partial := calls[0].Amount.Partial()
	assert.True(t, partial)
	assert.Equal(t, int64(250), n)
}

func TestInstrumented_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mock := testutil.NewMockGateway()
	mock.RefundPaymentFunc = func(ctx context.Context, id string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
		return nil, providerErr("refund_payment", 400)
	}
	gw := Instrument(mock, "mock", nil)

	_, err := gw.RefundPayment(context.Background(), "pi_1", payment.FullRefund())
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "gateway.refund_payment", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

// --- Breaker ---

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	}
}

func TestBreaker_OpensOnTransportFailures(t *testing.T) {
	metrics := newTestMetrics(t)
	mock := testutil.NewMockGateway()
	mock.CreatePaymentFunc = func(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
		return nil, transportErr("create_payment")
	}
	b := NewBreaker(mock, "mock", breakerConfig(), metrics)
	ctx := context.Background()
	req := payment.CreatePaymentRequest{Amount: 100, Currency: "usd"}

	for i := 0; i < 3; i++ {
		_, err := b.CreatePayment(ctx, req)
		require.ErrorIs(t, err, domainErrors.ErrTransport)
		assert.NotErrorIs(t, err, domainErrors.ErrCircuitOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.CreatePayment(ctx, req)
	assert.ErrorIs(t, err, domainErrors.ErrTransport)
	assert.ErrorIs(t, err, domainErrors.ErrCircuitOpen)
	assert.Len(t, mock.Calls(), 3, "open breaker must not reach the provider")

	assert.Equal(t, float64(gobreaker.StateOpen), promtestutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("mock")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.CircuitBreakerTransitions.WithLabelValues("mock", "closed", "open")))
}

func TestBreaker_IgnoresProviderRejections(t *testing.T) {
	mock := testutil.NewMockGateway()
	mock.VerifyPaymentFunc = func(ctx context.Context, id string) (*payment.PaymentRecord, error) {
		return nil, domainErrors.NewGatewayError(domainErrors.ErrNotFound, "mock", "verify_payment", nil)
	}
	mock.RefundPaymentFunc = func(ctx context.Context, id string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
		return nil, providerErr("refund_payment", 400)
	}
	b := NewBreaker(mock, "mock", breakerConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.VerifyPayment(ctx, "pi_unknown")
		assert.ErrorIs(t, err, domainErrors.ErrNotFound)
		_, err = b.RefundPayment(ctx, "pi_1", payment.FullRefund())
		assert.ErrorIs(t, err, domainErrors.ErrProvider)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_IgnoresCanceledCalls(t *testing.T) {
	mock := testutil.NewMockGateway()
	mock.CreatePaymentFunc = func(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
		return nil, domainErrors.NewGatewayError(domainErrors.ErrTransport, "mock", "create_payment", context.Canceled)
	}
	b := NewBreaker(mock, "mock", breakerConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.CreatePayment(ctx, payment.CreatePaymentRequest{Amount: 100, Currency: "usd"})
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, domainErrors.ErrCircuitOpen)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Len(t, mock.Calls(), 5)
}

func TestBreaker_CountsProviderServerErrors(t *testing.T) {
	mock := testutil.NewMockGateway()
	mock.VerifyPaymentFunc = func(ctx context.Context, id string) (*payment.PaymentRecord, error) {
		return nil, providerErr("verify_payment", 503)
	}
	b := NewBreaker(mock, "mock", breakerConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := b.VerifyPayment(context.Background(), "pi_1")
		assert.ErrorIs(t, err, domainErrors.ErrProvider)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
}

func TestBreaker_SuccessPassesThrough(t *testing.T) {
	mock := testutil.NewMockGateway()
	b := NewBreaker(mock, "mock", breakerConfig(), nil)
	ctx := context.Background()

	require.NoError(t, b.Initialize(ctx))
	rec, err := b.VerifyPayment(ctx, "pi_7")
	require.NoError(t, err)
	assert.Equal(t, "pi_7", rec.ID)

	refund, err := b.RefundPayment(ctx, "pi_7", payment.FullRefund())
	require.NoError(t, err)
	assert.Equal(t, "pi_7", refund.PaymentID)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
