package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
	"github.com/paygate/paygate/internal/domain/payment"
)

const maxIdempotencyKeyLen = 255

// PaymentController exposes the payment gateway over HTTP.
type PaymentController struct {
	gateway payment.Gateway
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(gateway payment.Gateway) *PaymentController {
	return &PaymentController{gateway: gateway}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, err := idempotentContext(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.gateway.CreatePayment(ctx, req.ToCreatePaymentRequest())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromPaymentRecord(rec))
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	rec, err := h.gateway.VerifyPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromPaymentRecord(rec))
}

// RefundPayment handles POST /api/v1/payments/{id}/refund
func (h *PaymentController) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, err := idempotentContext(r)
	if err != nil {
		writeError(w, err)
		return
	}

	refund, err := h.gateway.RefundPayment(ctx, chi.URLParam(r, "id"), req.RefundAmount())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromRefundRecord(refund))
}

// idempotentContext attaches the request's Idempotency-Key header, if any,
// to the request context.
func idempotentContext(r *http.Request) (context.Context, error) {
	key := r.Header.Get("Idempotency-Key")
	if len(key) > maxIdempotencyKeyLen {
		return nil, domainErrors.NewValidationError("Idempotency-Key", "must be at most 255 characters")
	}
	return payment.WithIdempotencyKey(r.Context(), key), nil
}
