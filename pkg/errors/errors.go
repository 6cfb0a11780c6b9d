package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error kinds. Callers branch on these with errors.Is, never on
// message text.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrValidation           = errors.New("validation error")
	ErrInvalidTransferState = errors.New("invalid transfer state")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrNegativeStock        = errors.New("negative stock")
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrConcurrencyConflict  = errors.New("concurrency conflict")
	ErrConflict             = errors.New("resource conflict")
	ErrBadRequest           = errors.New("bad request")
	ErrInternal             = errors.New("internal server error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// ValidationMsg creates a validation error with a single message instead of
// a per-field details map.
func ValidationMsg(message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// InvalidTransferState signals a transfer transition that is not legal from
// the transfer's current state.
func InvalidTransferState(current, attempted string) *AppError {
	return &AppError{
		Err:        ErrInvalidTransferState,
		Code:       "INVALID_TRANSFER_STATE",
		Message:    fmt.Sprintf("cannot %s a transfer in state %s", attempted, current),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"current_state": current, "attempted": attempted},
	}
}

// InsufficientStock signals a quantity precondition that failed at mutation
// time.
func InsufficientStock(message string) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NegativeStock signals a delta that would drive an item's quantity below
// zero.
func NegativeStock(message string) *AppError {
	return &AppError{
		Err:        ErrNegativeStock,
		Code:       "NEGATIVE_STOCK",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// InvalidDateRange signals an expiry extension that predates the item's
// manufacture date.
func InvalidDateRange(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidDateRange,
		Code:       "INVALID_DATE_RANGE",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// ConcurrencyConflict signals lock or version contention. The whole
// operation may be retried from scratch.
func ConcurrencyConflict(message string) *AppError {
	return &AppError{
		Err:        ErrConcurrencyConflict,
		Code:       "CONCURRENCY_CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
