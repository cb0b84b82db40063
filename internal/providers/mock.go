package providers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
)

// MockName is the provider name of the in-memory stand-in.
const MockName = "mock"

type mockPayment struct {
	record   payment.PaymentRecord
	refunded int64
}

// MockProvider is an in-memory payment.Gateway for local runs and tests.
// Payments always succeed; refunds are limited to the unrefunded amount.
type MockProvider struct {
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	currencies  map[string]bool
	now         func() time.Time

	mu          sync.Mutex
	initialized bool
	payments    map[string]*mockPayment
	paymentSeq  int
	refundSeq   int
	// replays maps an idempotency key to the result it first produced.
	replays map[string]any
}

// MockProviderOption configures a MockProvider.
type MockProviderOption func(*MockProvider)

// WithFailureRate sets the probability that a call fails as if the network
// dropped it.
func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

// WithLatency sets the simulated round-trip time.
func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

// WithCurrencies restricts the currencies the provider accepts.
func WithCurrencies(codes ...string) MockProviderOption {
	return func(p *MockProvider) {
		p.currencies = make(map[string]bool, len(codes))
		for _, c := range codes {
			p.currencies[strings.ToLower(c)] = true
		}
	}
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		currencies: map[string]bool{"usd": true, "eur": true, "gbp": true, "brl": true},
		now:        time.Now,
		payments:   make(map[string]*mockPayment),
		replays:    make(map[string]any),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		e := domainErrors.NewGatewayError(domainErrors.ErrInitialization, MockName, "initialize", nil)
		e.Message = "already initialized"
		return e
	}
	p.initialized = true
	return nil
}

func (p *MockProvider) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
	const op = "create_payment"
	if err := p.roundTrip(ctx, op); err != nil {
		return nil, err
	}

	if req.Amount < 1 {
		return nil, rejected(op, "parameter_invalid_integer", "amount must be at least 1")
	}
	if !p.currencies[req.Currency] {
		return nil, rejected(op, "currency_not_supported", fmt.Sprintf("currency %q is not supported", req.Currency))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key, replay := payment.IdempotencyKey(ctx)
	if replay {
		if prev, ok := p.replays[key].(*payment.PaymentRecord); ok {
			out := *prev
			out.Metadata = prev.Metadata.Clone()
			return &out, nil
		}
	}

	p.paymentSeq++
	id := fmt.Sprintf("pi_%d", p.paymentSeq)
	rec := payment.PaymentRecord{
		ID:           id,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       payment.StatusSucceeded,
		ClientSecret: id + "_secret_" + uuid.New().String()[:8],
		Metadata:     req.Metadata.Clone(),
		Created:      p.now().UTC().Truncate(time.Second),
	}
	p.payments[id] = &mockPayment{record: rec}
	if replay {
		saved := rec
		p.replays[key] = &saved
	}

	out := rec
	out.Metadata = rec.Metadata.Clone()
	return &out, nil
}

func (p *MockProvider) VerifyPayment(ctx context.Context, paymentID string) (*payment.PaymentRecord, error) {
	const op = "verify_payment"
	if err := p.roundTrip(ctx, op); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	mp, ok := p.payments[paymentID]
	if !ok {
		return nil, missing(op, paymentID)
	}
	out := mp.record
	out.Metadata = mp.record.Metadata.Clone()
	return &out, nil
}

func (p *MockProvider) RefundPayment(ctx context.Context, paymentID string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
	const op = "refund_payment"
	if err := p.roundTrip(ctx, op); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key, replay := payment.IdempotencyKey(ctx)
	if replay {
		if prev, ok := p.replays[key].(*payment.RefundRecord); ok {
			out := *prev
			return &out, nil
		}
	}

	mp, ok := p.payments[paymentID]
	if !ok {
		return nil, missing(op, paymentID)
	}

	remaining := mp.record.Amount - mp.refunded
	if remaining == 0 {
		return nil, rejected(op, "charge_already_refunded", "payment "+paymentID+" has already been refunded")
	}

	value := remaining
	if n, partial := amount.Partial(); partial {
		if n < 1 {
			return nil, rejected(op, "parameter_invalid_integer", "refund amount must be at least 1")
		}
		if n > remaining {
			return nil, rejected(op, "amount_too_large", fmt.Sprintf("refund amount %d is greater than unrefunded amount %d", n, remaining))
		}
		value = n
	}
	mp.refunded += value

	p.refundSeq++
	refund := payment.RefundRecord{
		ID:        fmt.Sprintf("re_%d", p.refundSeq),
		PaymentID: paymentID,
		Amount:    value,
		Currency:  mp.record.Currency,
		Status:    payment.RefundSucceeded,
		Created:   p.now().UTC().Truncate(time.Second),
	}
	if replay {
		saved := refund
		p.replays[key] = &saved
	}
	return &refund, nil
}

// roundTrip simulates the network leg of a call.
func (p *MockProvider) roundTrip(ctx context.Context, op string) error {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return domainErrors.NewGatewayError(domainErrors.ErrTransport, MockName, op, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return domainErrors.NewGatewayError(domainErrors.ErrTransport, MockName, op, err)
	}

	if p.failureRate > 0 && rand.Float64() < p.failureRate {
		e := domainErrors.NewGatewayError(domainErrors.ErrTransport, MockName, op, nil)
		e.Message = "simulated connection reset"
		return e
	}
	return nil
}

func rejected(op, code, msg string) error {
	return &domainErrors.GatewayError{
		Kind:       domainErrors.ErrProvider,
		Op:         op,
		Provider:   MockName,
		Code:       code,
		Type:       "invalid_request_error",
		StatusCode: 400,
		Message:    msg,
	}
}

func missing(op, id string) error {
	return &domainErrors.GatewayError{
		Kind:       domainErrors.ErrNotFound,
		Op:         op,
		Provider:   MockName,
		Code:       "resource_missing",
		Type:       "invalid_request_error",
		StatusCode: 404,
		Message:    fmt.Sprintf("no such payment: %q", id),
	}
}

var _ payment.Gateway = (*MockProvider)(nil)
