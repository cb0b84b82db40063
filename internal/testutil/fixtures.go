package testutil

import (
	"time"

	"github.com/paygate/paygate/internal/domain/payment"
)

// FixedTime is the creation time used by every fixture.
var FixedTime = time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)

// NewTestPaymentRecord creates a succeeded payment record for testing.
func NewTestPaymentRecord(id string, amount int64, currency string) *payment.PaymentRecord {
	return &payment.PaymentRecord{
		ID:           id,
		Amount:       amount,
		Currency:     currency,
		Status:       payment.StatusSucceeded,
		ClientSecret: id + "_secret_test",
		Metadata:     payment.Metadata{},
		Created:      FixedTime,
	}
}

// NewTestRefundRecord creates a succeeded refund record for testing.
func NewTestRefundRecord(id, paymentID string, amount int64) *payment.RefundRecord {
	return &payment.RefundRecord{
		ID:        id,
		PaymentID: paymentID,
		Amount:    amount,
		Currency:  "usd",
		Status:    payment.RefundSucceeded,
		Created:   FixedTime,
	}
}
