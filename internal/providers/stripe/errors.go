package stripe

import (
	"errors"
	"net/http"

	stripego "github.com/stripe/stripe-go/v76"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
)

// classify maps an SDK error onto a gateway error kind. Errors that carry a
// Stripe error body are provider answers; anything else means the exchange
// did not complete.
func classify(op string, err error) error {
	var stripeErr *stripego.Error
	if !errors.As(err, &stripeErr) {
		return domainErrors.NewGatewayError(domainErrors.ErrTransport, Name, op, err)
	}

	kind := domainErrors.ErrProvider
	if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripego.ErrorCodeResourceMissing {
		kind = domainErrors.ErrNotFound
	}

	return &domainErrors.GatewayError{
		Kind:       kind,
		Op:         op,
		Provider:   Name,
		Code:       string(stripeErr.Code),
		Type:       string(stripeErr.Type),
		StatusCode: stripeErr.HTTPStatusCode,
		RequestID:  stripeErr.RequestID,
		Message:    stripeErr.Msg,
		Err:        err,
	}
}
