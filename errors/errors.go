package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = fmt.Errorf("validation failed")
	ErrNotFound   = fmt.Errorf("message not found")
	ErrInternal   = fmt.Errorf("internal error")

	ErrMessageRequired = fmt.Errorf("%w: message is required", ErrValidation)
	ErrMessageTooLong  = fmt.Errorf("%w: message too long", ErrValidation)
	ErrUnknownTheme    = fmt.Errorf("%w: unknown theme", ErrValidation)
	ErrInvalidBody     = fmt.Errorf("%w: invalid request body", ErrValidation)

	ErrAlreadyExists    = fmt.Errorf("message id already exists")
	ErrIDSpaceExhausted = fmt.Errorf("%w: could not generate a free message id", ErrInternal)

	ErrWorkerPanic = fmt.Errorf("worker panicked")
)

// reasons holds the user facing text sent back in JSON error bodies.
var reasons = []struct {
	err    error
	reason string
}{
	{ErrMessageRequired, "Message is required"},
	{ErrMessageTooLong, "Message too long"},
	{ErrUnknownTheme, "Unknown theme"},
	{ErrInvalidBody, "Invalid request body"},
	{ErrNotFound, "Message not found"},
}

// MapToHTTPStatus converts the error taxonomy into a status code.
// Anything outside of validation and not-found is an internal error.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Reason returns the message exposed to clients, never the wrapped internals.
func Reason(err error) string {
	for _, r := range reasons {
		if stderrors.Is(err, r.err) {
			return r.reason
		}
	}
	if stderrors.Is(err, ErrValidation) {
		return "Invalid message"
	}
	return "Internal server error"
}
