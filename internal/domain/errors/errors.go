package errors

import (
	"errors"
	"fmt"
)

var (
	// Gateway error kinds. Every error returned by a payment.Gateway matches
	// exactly one of these with errors.Is.
	ErrInitialization = errors.New("gateway initialization failed")
	ErrProvider       = errors.New("payment rejected by provider")
	ErrTransport      = errors.New("provider request could not complete")
	ErrNotFound       = errors.New("payment not found at provider")

	// ErrCircuitOpen is wrapped together with ErrTransport when the breaker
	// in front of a provider rejects a call.
	ErrCircuitOpen = errors.New("provider circuit breaker open")

	ErrValidationFailed = errors.New("validation failed")
)

// GatewayError carries the provider's view of a failed call.
type GatewayError struct {
	Kind       error
	Op         string
	Provider   string
	Code       string
	Type       string
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %s (%s)", e.Provider, e.Op, msg, e.Code)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, msg)
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewGatewayError creates a new gateway error of the given kind.
func NewGatewayError(kind error, provider, op string, err error) *GatewayError {
	return &GatewayError{
		Kind:     kind,
		Op:       op,
		Provider: provider,
		Err:      err,
	}
}

// KindOf returns the gateway error kind err matches, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrInitialization, ErrTransport, ErrProvider} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
