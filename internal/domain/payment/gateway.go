package payment

import (
	"context"
	"fmt"
)

// Gateway is the capability every payment backend implements. Callers depend
// on Gateway only; a new provider is a new implementation.
//
// Errors returned by a Gateway match one of the kinds in the domain errors
// package: ErrInitialization, ErrProvider, ErrTransport or ErrNotFound.
type Gateway interface {
	// Initialize prepares the gateway. It must be called once, before any
	// other operation; a failure is fatal.
	Initialize(ctx context.Context) error
	// CreatePayment creates a payment intent for the amount and currency.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentRecord, error)
	// VerifyPayment returns the current state of a payment.
	VerifyPayment(ctx context.Context, paymentID string) (*PaymentRecord, error)
	// RefundPayment refunds a payment in full or in part.
	RefundPayment(ctx context.Context, paymentID string, amount RefundAmount) (*RefundRecord, error)
}

// RefundAmount is the optional amount of a refund. The zero value is a full
// refund.
type RefundAmount struct {
	value   int64
	partial bool
}

// FullRefund refunds whatever remains of the captured amount.
func FullRefund() RefundAmount {
	return RefundAmount{}
}

// PartialRefund refunds exactly amount, in the smallest currency unit.
func PartialRefund(amount int64) RefundAmount {
	return RefundAmount{value: amount, partial: true}
}

// Partial returns the amount to refund and true, or false for a full refund.
func (r RefundAmount) Partial() (int64, bool) {
	return r.value, r.partial
}

func (r RefundAmount) String() string {
	if !r.partial {
		return "full"
	}
	return fmt.Sprintf("%d", r.value)
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches a caller-chosen idempotency key to ctx.
// Gateways that support idempotent requests send it with CreatePayment and
// RefundPayment; the others ignore it.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKey returns the key attached by WithIdempotencyKey.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)
	return key, ok
}
