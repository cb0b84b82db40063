package providers

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/infrastructure/observability"
)

const tracerName = "github.com/paygate/paygate/internal/providers"

// Outcome labels for the gateway_calls_total metric.
const (
	OutcomeOK             = "ok"
	OutcomeNotFound       = "not_found"
	OutcomeProviderError  = "provider_error"
	OutcomeTransportError = "transport_error"
	OutcomeInitError      = "initialization_error"
	OutcomeUnknownError   = "error"
)

// Outcome returns the metric label for the result of a gateway call.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch domainErrors.KindOf(err) {
	case domainErrors.ErrNotFound:
		return OutcomeNotFound
	case domainErrors.ErrProvider:
		return OutcomeProviderError
	case domainErrors.ErrTransport:
		return OutcomeTransportError
	case domainErrors.ErrInitialization:
		return OutcomeInitError
	default:
		return OutcomeUnknownError
	}
}

// Instrumented records metrics and a trace span for every call made to the
// wrapped gateway. It never logs and never alters results.
type Instrumented struct {
	next     payment.Gateway
	provider string
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// Instrument wraps next. metrics may be nil, in which case only spans are
// recorded.
func Instrument(next payment.Gateway, provider string, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{
		next:     next,
		provider: provider,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

func (g *Instrumented) Initialize(ctx context.Context) error {
	return g.observe(ctx, "initialize", func(ctx context.Context) error {
		return g.next.Initialize(ctx)
	})
}

func (g *Instrumented) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
	var rec *payment.PaymentRecord
	err := g.observe(ctx, "create_payment", func(ctx context.Context) error {
		var err error
		rec, err = g.next.CreatePayment(ctx, req)
		return err
	}, attribute.Int64("payment.amount", req.Amount), attribute.String("payment.currency", req.Currency))
	return rec, err
}

func (g *Instrumented) VerifyPayment(ctx context.Context, paymentID string) (*payment.PaymentRecord, error) {
	var rec *payment.PaymentRecord
	err := g.observe(ctx, "verify_payment", func(ctx context.Context) error {
		var err error
		rec, err = g.next.VerifyPayment(ctx, paymentID)
		return err
	}, attribute.String("payment.id", paymentID))
	return rec, err
}

func (g *Instrumented) RefundPayment(ctx context.Context, paymentID string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
	var rec *payment.RefundRecord
	err := g.observe(ctx, "refund_payment", func(ctx context.Context) error {
		var err error
		rec, err = g.next.RefundPayment(ctx, paymentID, amount)
		return err
	}, attribute.String("payment.id", paymentID), attribute.String("refund.amount", amount.String()))
	return rec, err
}

func (g *Instrumented) observe(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("payment.provider", g.provider))...),
	)
	defer span.End()

	if g.metrics != nil {
		inFlight := g.metrics.GatewayInFlight.WithLabelValues(g.provider)
		inFlight.Inc()
		defer inFlight.Dec()
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	outcome := Outcome(err)
	span.SetAttributes(attribute.String("gateway.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var gwErr *domainErrors.GatewayError
		if errors.As(err, &gwErr) && gwErr.RequestID != "" {
			span.SetAttributes(attribute.String("gateway.request_id", gwErr.RequestID))
		}
	}

	if g.metrics != nil {
		g.metrics.GatewayCalls.WithLabelValues(g.provider, op, outcome).Inc()
		g.metrics.GatewayCallDuration.WithLabelValues(g.provider, op).Observe(duration)
	}
	return err
}

var _ payment.Gateway = (*Instrumented)(nil)
