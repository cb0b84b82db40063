package testutil

import (
	"context"
	"sync"

	"github.com/paygate/paygate/internal/domain/payment"
)

// --- Gateway Mock ---

// Call records one invocation of a MockGateway method.
type Call struct {
	Op        string
	PaymentID string
	Request   payment.CreatePaymentRequest
	Amount    payment.RefundAmount
}

// MockGateway is a scriptable payment.Gateway. Unset hooks return a
// successful record built from the arguments.
type MockGateway struct {
	mu    sync.Mutex
	calls []Call

	InitializeFunc    func(ctx context.Context) error
	CreatePaymentFunc func(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error)
	VerifyPaymentFunc func(ctx context.Context, paymentID string) (*payment.PaymentRecord, error)
	RefundPaymentFunc func(ctx context.Context, paymentID string, amount payment.RefundAmount) (*payment.RefundRecord, error)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns the invocations seen so far.
func (m *MockGateway) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockGateway) Initialize(ctx context.Context) error {
	m.record(Call{Op: "initialize"})
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx)
	}
	return nil
}

func (m *MockGateway) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.PaymentRecord, error) {
	m.record(Call{Op: "create_payment", Request: req})
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, req)
	}
	return NewTestPaymentRecord("pi_1", req.Amount, req.Currency), nil
}

func (m *MockGateway) VerifyPayment(ctx context.Context, paymentID string) (*payment.PaymentRecord, error) {
	m.record(Call{Op: "verify_payment", PaymentID: paymentID})
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, paymentID)
	}
	return NewTestPaymentRecord(paymentID, 1000, "usd"), nil
}

func (m *MockGateway) RefundPayment(ctx context.Context, paymentID string, amount payment.RefundAmount) (*payment.RefundRecord, error) {
	m.record(Call{Op: "refund_payment", PaymentID: paymentID, Amount: amount})
	if m.RefundPaymentFunc != nil {
		return m.RefundPaymentFunc(ctx, paymentID, amount)
	}
	value := int64(1000)
	if n, ok := amount.Partial(); ok {
		value = n
	}
	return NewTestRefundRecord("re_1", paymentID, value), nil
}

var _ payment.Gateway = (*MockGateway)(nil)
