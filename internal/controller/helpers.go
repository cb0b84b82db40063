package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	domainErrors "github.com/paygate/paygate/internal/domain/errors"
)

const maxBodySize = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: an open breaker is also a transport error.
var errorMappings = []errorMapping{
	{domainErrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrCircuitOpen, http.StatusServiceUnavailable, "provider_unavailable"},
	{domainErrors.ErrTransport, http.StatusBadGateway, "provider_unreachable"},
	{domainErrors.ErrInitialization, http.StatusServiceUnavailable, "gateway_not_initialized"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var gwErr *domainErrors.GatewayError
	if errors.As(err, &gwErr) {
		resp.ProviderCode = gwErr.Code
		resp.RequestID = gwErr.RequestID
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	if errors.Is(err, domainErrors.ErrProvider) {
		// A rejected credential is our misconfiguration, not the caller's.
		if gwErr != nil && (gwErr.StatusCode == http.StatusUnauthorized || gwErr.StatusCode == http.StatusForbidden) {
			log.Error().Err(err).Str("request_id", gwErr.RequestID).Msg("provider rejected gateway credentials")
			resp.Code = "provider_auth_failed"
			resp.Error = "payment provider rejected the gateway credentials"
			writeJSON(w, http.StatusBadGateway, resp)
			return
		}
		resp.Code = "provider_rejected"
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp = ErrorResponse{Code: "internal_error", Error: "internal server error"}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	return decode(r, dst, false)
}

// decodeOptional accepts an empty body and validates the zero value.
func decodeOptional(r *http.Request, dst any) error {
	return decode(r, dst, true)
}

func decode(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(dst)
	if err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
