package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError for transport mapping.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// DomainError is an expected, caller-correctable failure.
type DomainError struct {
	Code    ErrorCode
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another DomainError by code and, when set on the target, by reason.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewNotFoundError creates a not-found error for the given entity and identifier.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewNotFoundReason creates a not-found error carrying a machine-readable reason.
func NewNotFoundReason(reason, message string) *DomainError {
	return &DomainError{Code: CodeNotFound, Reason: reason, Message: message}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: message}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Code: CodeUnauthorized, Message: message}
}

// AsDomainError unwraps err into a DomainError if it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsNotFound reports whether err is a not-found DomainError.
func IsNotFound(err error) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == CodeNotFound
}

// IsValidation reports whether err is a validation DomainError.
func IsValidation(err error) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == CodeValidation
}

// IsConflict reports whether err is a conflict DomainError.
func IsConflict(err error) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == CodeConflict
}

// IsExpected reports whether err is a DomainError, i.e. a normal outcome rather than a fault.
func IsExpected(err error) bool {
	_, ok := AsDomainError(err)
	return ok
}
