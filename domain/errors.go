package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeDuplicateID       ErrorCode = "DUPLICATE_ID"
	ErrCodeParentNotFound    ErrorCode = "PARENT_NOT_FOUND"
	ErrCodeParentNotCategory ErrorCode = "PARENT_NOT_CATEGORY"
	ErrCodeTypeImmutable     ErrorCode = "TYPE_IMMUTABLE"
	ErrCodeInvalidPrice      ErrorCode = "INVALID_PRICE"
	ErrCodeInvalid           ErrorCode = "INVALID"
	ErrCodeInternal          ErrorCode = "INTERNAL"
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
	ErrUnitNotFound      = NewError(ErrCodeNotFound, "unit not found")
	ErrDuplicateID       = NewError(ErrCodeDuplicateID, "batch contains a repeated id")
	ErrParentNotFound    = NewError(ErrCodeParentNotFound, "parent does not exist")
	ErrParentNotCategory = NewError(ErrCodeParentNotCategory, "parent must be a category")
	ErrTypeImmutable     = NewError(ErrCodeTypeImmutable, "unit kind cannot change after creation")
	ErrInvalidPrice      = NewError(ErrCodeInvalidPrice, "offer price must be a non-negative integer, category price must be null")
	ErrInvalidPayload    = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// IsValidation reports whether the error belongs to the request-rejecting
// family (anything except NotFound and Internal).
func IsValidation(err error) bool {
	var dErr *Error
	if !errors.As(err, &dErr) {
		return false
	}
	switch dErr.Code {
	case ErrCodeNotFound, ErrCodeInternal:
		return false
	default:
		return true
	}
}
