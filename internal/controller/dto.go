package controller

import (
	"time"

	"github.com/paygate/paygate/internal/domain/payment"
)

// --- Request DTOs ---
// Amounts are integers in the currency's smallest unit, exactly as the
// provider expects them; no conversion happens at this layer.

// CreatePaymentRequest holds the input for creating a payment.
type CreatePaymentRequest struct {
	Amount   int64             `json:"amount" validate:"gt=0"`
	Currency string            `json:"currency" validate:"required,len=3,lowercase"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=50,dive,keys,min=1,max=40,endkeys,max=500"`
}

// RefundRequest holds the input for refunding a payment. A missing amount
// refunds whatever has not been refunded yet.
type RefundRequest struct {
	Amount *int64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

// --- Response DTOs ---

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Metadata     map[string]string `json:"metadata"`
	Livemode     bool              `json:"livemode"`
	Created      time.Time         `json:"created"`
	Extra        payment.Extras    `json:"extra,omitempty"`
}

// RefundResponse represents a refund in API responses.
type RefundResponse struct {
	ID        string         `json:"id"`
	PaymentID string         `json:"payment_id"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Status    string         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Created   time.Time      `json:"created"`
	Extra     payment.Extras `json:"extra,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	ProviderCode string `json:"provider_code,omitempty"`
	RequestID    string `json:"provider_request_id,omitempty"`
}

// --- Conversion helpers ---

// ToCreatePaymentRequest converts the API request to the gateway request.
func (r CreatePaymentRequest) ToCreatePaymentRequest() payment.CreatePaymentRequest {
	return payment.CreatePaymentRequest{
		Amount:   r.Amount,
		Currency: r.Currency,
		Metadata: payment.Metadata(r.Metadata),
	}
}

// RefundAmount converts the optional amount to the gateway's form.
func (r RefundRequest) RefundAmount() payment.RefundAmount {
	if r.Amount == nil {
		return payment.FullRefund()
	}
	return payment.PartialRefund(*r.Amount)
}

// FromPaymentRecord converts a gateway payment record to API response.
func FromPaymentRecord(p *payment.PaymentRecord) *PaymentResponse {
	metadata := map[string]string(p.Metadata.Clone())
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &PaymentResponse{
		ID:           p.ID,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       string(p.Status),
		ClientSecret: p.ClientSecret,
		Metadata:     metadata,
		Livemode:     p.Livemode,
		Created:      p.Created,
		Extra:        p.Extra,
	}
}

// FromRefundRecord converts a gateway refund record to API response.
func FromRefundRecord(r *payment.RefundRecord) *RefundResponse {
	return &RefundResponse{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount,
		Currency:  r.Currency,
		Status:    string(r.Status),
		Reason:    r.Reason,
		Created:   r.Created,
		Extra:     r.Extra,
	}
}
