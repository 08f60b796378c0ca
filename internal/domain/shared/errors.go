package shared

import (
	"errors"
	"fmt"
)

// Error codes. Each code is also the machine-checkable kind surfaced to clients.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeDuplicateBid        = "DUPLICATE_BID"
	CodeAlreadyRated        = "ALREADY_RATED"
	CodeExpired             = "EXPIRED"
	CodeInternal            = "INTERNAL_ERROR"
)

// FieldError is a single field-level violation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on code so errors.Is(err, ErrNotFound) holds for any NOT_FOUND error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrConflict            = NewDomainError(CodeConflict, "Resource is not in a state that permits this operation")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Status transition is not allowed")
	ErrExpired             = NewDomainError(CodeExpired, "Resource has expired")
	ErrValidation          = NewDomainError(CodeValidation, "Validation failed")
)

// NewNotFoundError reports a missing resource by name.
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// NewForbiddenError creates a FORBIDDEN error.
func NewForbiddenError(message string) *DomainError {
	return NewDomainError(CodeForbidden, message)
}

// NewConflictError creates a CONFLICT error.
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewExpiredError creates an EXPIRED error.
func NewExpiredError(message string) *DomainError {
	return NewDomainError(CodeExpired, message)
}

// NewInvalidTransitionError reports a transition missing from an entity's table.
func NewInvalidTransitionError(entity string, from, to fmt.Stringer) *DomainError {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("Cannot move %s from %s to %s", entity, from, to))
}

// NewValidationError creates a VALIDATION_ERROR for a single field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    CodeValidation,
		Message: message,
		Details: []FieldError{{Field: field, Message: message}},
	}
}

// ValidationErrors collects field violations before any mutation happens.
type ValidationErrors struct {
	fields []FieldError
}

// Add records a violation for field.
func (v *ValidationErrors) Add(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any violation was recorded.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.fields) > 0
}

// Fields returns the recorded violations.
func (v *ValidationErrors) Fields() []FieldError {
	return v.fields
}

// Err returns nil when clean, otherwise a VALIDATION_ERROR carrying every field.
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	msg := v.fields[0].Message
	if len(v.fields) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(v.fields)-1)
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: msg,
		Details: v.fields,
	}
}

// ErrorCode extracts the domain code from err, or "" when err is not a DomainError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsConflict reports whether err belongs to the conflict family: the entity is
// not in a state that permits the requested change.
func IsConflict(err error) bool {
	switch ErrorCode(err) {
	case CodeConflict, CodeConcurrencyConflict, CodeInvalidState,
		CodeInvalidTransition, CodeDuplicateBid, CodeAlreadyRated:
		return true
	}
	return false
}
