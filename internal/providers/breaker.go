package providers

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
	"github.com/paygate/paygate/internal/infrastructure/config"
	"github.com/paygate/paygate/internal/infrastructure/observability"
)

// Breaker fails calls fast while the provider looks unreachable. Only
// transport failures and provider-side 5xx responses count against it; a
// declined card or an unknown id says nothing about provider health.
//
// Breaker does not retry.
type Breaker struct {
	next     payment.Gateway
	provider string
	cb       *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next with a circuit breaker configured from cfg. metrics
// may be nil.
func NewBreaker(next payment.Gateway, provider string, cfg config.CircuitBreakerConfig, metrics *observability.Metrics) *Breaker {
	minRequests := cfg.MinRequests
	ratio := cfg.FailureRatio

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
	}
	if metrics != nil {
		metrics.CircuitBreakerState.WithLabelValues(provider).Set(0)
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		}
	}

	return &Breaker{
		next:     next,
		provider: provider,
		cb:       gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Initialize bypasses the breaker; it makes no provider call worth guarding.
func (b *Breaker) Initialize(ctx context.Context) error {
	return b.next.Initialize(ctx)
}

func (b *Breaker) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.CreatePayment(ctx, req)
	})
	if err != nil {
		return nil, b.translate("create_payment", err)
	}
	return res.(*payment.PaymentRecord), nil
}

func (b *Breaker) VerifyPayment(ctx context.Context, paymentID string) (*payment.PaymentRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.VerifyPayment(ctx, paymentID)
	})
	if err != nil {
		return nil, b.translate("verify_payment", err)
	}
	return res.(*payment.PaymentRecord), nil
}

func (b *Breaker) RefundPayment(ctx context.Context, paymentID string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.RefundPayment(ctx, paymentID, amount)
	})
	if err != nil {
		return nil, b.translate("refund_payment", err)
	}
	return res.(*payment.RefundRecord), nil
}

// translate turns gobreaker's own rejections into transport errors and
// passes everything else through untouched.
func (b *Breaker) translate(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		e := domainErrors.NewGatewayError(domainErrors.ErrTransport, b.provider, op, domainErrors.ErrCircuitOpen)
		e.Message = err.Error()
		return e
	}
	return err
}

// countsAsFailure reports whether err says something about the provider's
// health. A caller that gave up is not a provider failure.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, domainErrors.ErrTransport) {
		return true
	}
	var gwErr *domainErrors.GatewayError
	return errors.As(err, &gwErr) && gwErr.StatusCode >= 500
}

var _ payment.Gateway = (*Breaker)(nil)
