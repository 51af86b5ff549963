package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"
	ErrCodeValidation  ErrorCode = "VALIDATION"
	ErrCodeState       ErrorCode = "STATE"
	ErrCodeConflict    ErrorCode = "CONFLICT"
	ErrCodeTenant      ErrorCode = "TENANT"
	ErrCodeIntegration ErrorCode = "INTEGRATION"
	ErrCodeInternal    ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf builds a domain error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrOrderNotFound    = NewError(ErrCodeNotFound, "purchase order not found")
	ErrTenantNotFound   = NewError(ErrCodeNotFound, "tenant not found")
	ErrOrderNumberTaken = NewError(ErrCodeConflict, "order number already in use")
	ErrVersionConflict  = NewError(ErrCodeConflict, "purchase order was modified concurrently")
	ErrInvalidPayload   = NewError(ErrCodeValidation, "invalid payload")
	ErrPublisherOffline = NewError(ErrCodeIntegration, "event publisher is not connected")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
