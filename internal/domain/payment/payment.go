package payment

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentStatus is the provider's lifecycle status of a payment intent.
type PaymentStatus string

const (
	StatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	StatusRequiresConfirmation  PaymentStatus = "requires_confirmation"
	StatusRequiresAction        PaymentStatus = "requires_action"
	StatusProcessing            PaymentStatus = "processing"
	StatusRequiresCapture       PaymentStatus = "requires_capture"
	StatusCanceled              PaymentStatus = "canceled"
	StatusSucceeded             PaymentStatus = "succeeded"
)

// IsTerminal reports whether the provider will not move the payment further.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusCanceled
}

// RefundStatus is the provider's lifecycle status of a refund.
type RefundStatus string

const (
	RefundPending        RefundStatus = "pending"
	RefundRequiresAction RefundStatus = "requires_action"
	RefundSucceeded      RefundStatus = "succeeded"
	RefundFailed         RefundStatus = "failed"
	RefundCanceled       RefundStatus = "canceled"
)

// Metadata is free-form data attached to a payment for later lookup.
// Providers store metadata values as strings.
type Metadata map[string]string

// Clone returns a copy of m, or nil when m is empty.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Extras holds response fields a record does not model, keyed by their
// JSON name, so nothing the provider returns is lost.
type Extras map[string]json.RawMessage

// ExtrasFromJSON decodes a JSON object and keeps every top-level field
// whose name is not in known.
func ExtrasFromJSON(raw []byte, known ...string) (Extras, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decode response fields: %w", err)
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extras(all), nil
}

// Decode unmarshals the extra field key into v. It reports false when the
// field is absent.
func (e Extras) Decode(key string, v any) (bool, error) {
	raw, ok := e[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode extra field %q: %w", key, err)
	}
	return true, nil
}

// CreatePaymentRequest holds the input for creating a payment.
type CreatePaymentRequest struct {
	Amount   int64 // smallest currency unit
	Currency string
	Metadata Metadata
}

// PaymentRecord is the provider's representation of a payment intent.
type PaymentRecord struct {
	ID           string
	Amount       int64
	Currency     string
	Status       PaymentStatus
	ClientSecret string
	Metadata     Metadata
	Created      time.Time
	Livemode     bool
	Extra        Extras
}

// RefundRecord is the provider's representation of a refund.
type RefundRecord struct {
	ID        string
	PaymentID string
	Amount    int64
	Currency  string
	Status    RefundStatus
	Reason    string
	Created   time.Time
	Extra     Extras
}
