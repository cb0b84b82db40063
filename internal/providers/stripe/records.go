package stripe

import (
	"time"

	stripego "github.com/stripe/stripe-go/v76"

	"github.com/paygate/paygate/internal/domain/payment"
)

var (
	paymentIntentFields = []string{"id", "amount", "currency", "status", "client_secret", "metadata", "created", "livemode"}
	refundFields        = []string{"id", "payment_intent", "amount", "currency", "status", "reason", "created"}
)

func toPaymentRecord(op string, pi *stripego.PaymentIntent) (*payment.PaymentRecord, error) {
	rec := &payment.PaymentRecord{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       payment.PaymentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
		Metadata:     payment.Metadata(pi.Metadata).Clone(),
		Created:      unixTime(pi.Created),
		Livemode:     pi.Livemode,
	}
	if pi.LastResponse != nil {
		extra, err := payment.ExtrasFromJSON(pi.LastResponse.RawJSON, paymentIntentFields...)
		if err != nil {
			return nil, classify(op, err)
		}
		rec.Extra = extra
	}
	return rec, nil
}

func toRefundRecord(r *stripego.Refund) (*payment.RefundRecord, error) {
	rec := &payment.RefundRecord{
		ID:       r.ID,
		Amount:   r.Amount,
		Currency: string(r.Currency),
		Status:   payment.RefundStatus(r.Status),
		Reason:   string(r.Reason),
		Created:  unixTime(r.Created),
	}
	if r.PaymentIntent != nil {
		rec.PaymentID = r.PaymentIntent.ID
	}
	if r.LastResponse != nil {
		extra, err := payment.ExtrasFromJSON(r.LastResponse.RawJSON, refundFields...)
		if err != nil {
			return nil, classify(opRefund, err)
		}
		rec.Extra = extra
	}
	return rec, nil
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
