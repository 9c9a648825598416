package apperror

import (
	"fmt"
	"net/http"
)

// Error codes reported to clients. The boundary responder keys off Operational,
// not the code, to decide whether Message is safe to show.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeDuplicate      = "DUPLICATE_VALUE"
	CodeDeliveryFailed = "DELIVERY_FAILED"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error is the single error type crossing the service/handler boundary.
// Operational errors carry user-fixable messages; anything else is logged
// server-side and reported generically.
type Error struct {
	Status      int
	Code        string
	Message     string
	Details     []string
	Operational bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports every violated constraint, not just the first.
func Validation(details ...string) *Error {
	msg := "invalid input data"
	if len(details) == 1 {
		msg = details[0]
	}
	return &Error{
		Status:      http.StatusBadRequest,
		Code:        CodeValidation,
		Message:     msg,
		Details:     details,
		Operational: true,
	}
}

func BadRequest(message string) *Error {
	return &Error{
		Status:      http.StatusBadRequest,
		Code:        CodeValidation,
		Message:     message,
		Operational: true,
	}
}

func NotFound(resource, id string) *Error {
	return &Error{
		Status:      http.StatusNotFound,
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("no %s found with id %s", resource, id),
		Operational: true,
	}
}

// Unauthorized covers the whole rejected-credential family (missing, invalid,
// expired, identity gone, password changed). Callers pick the message; nothing
// beyond it leaks which check failed.
func Unauthorized(message string) *Error {
	return &Error{
		Status:      http.StatusUnauthorized,
		Code:        CodeUnauthorized,
		Message:     message,
		Operational: true,
	}
}

func Forbidden() *Error {
	return &Error{
		Status:      http.StatusForbidden,
		Code:        CodeForbidden,
		Message:     "you do not have permission to perform this action",
		Operational: true,
	}
}

func Duplicate(field string) *Error {
	return &Error{
		Status:      http.StatusConflict,
		Code:        CodeDuplicate,
		Message:     fmt.Sprintf("%s value already in use, please use another value", field),
		Operational: true,
	}
}

func DeliveryFailed(err error) *Error {
	return &Error{
		Status:      http.StatusInternalServerError,
		Code:        CodeDeliveryFailed,
		Message:     "there was an error sending the email, try again later",
		Operational: true,
		Err:         err,
	}
}

func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "something went wrong",
		Err:     err,
	}
}
