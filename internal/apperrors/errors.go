package apperrors

import "errors"

// Sentinel errors shared across the service. Handlers translate these to HTTP
// status codes at the boundary; nothing below the handler layer writes a
// response.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the caller lacks the staff/admin capability.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedPayload indicates a scanned pickup payload that is not a
	// well-formed three-part string.
	ErrMalformedPayload = errors.New("malformed pickup payload")

	// ErrInvalidSignature indicates a pickup payload whose signature does not
	// match the recomputed value.
	ErrInvalidSignature = errors.New("invalid pickup signature")

	// ErrAlreadyCompleted indicates a pickup attempt against an order that was
	// already picked up.
	ErrAlreadyCompleted = errors.New("order already completed")

	// ErrOrderCancelled indicates a pickup or advance attempt against a
	// cancelled order.
	ErrOrderCancelled = errors.New("order cancelled")

	// ErrPaymentNotConfirmed indicates a pickup attempt before the gateway
	// confirmed payment.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")

	// ErrInvalidTransition indicates a staff status advance from a state the
	// transition table does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError carries a field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
