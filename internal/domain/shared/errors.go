package shared

import "errors"

// DomainError represents a domain-level error.
// Two DomainErrors match under errors.Is when their codes are equal, so the
// package-level sentinels below can be used as error classes.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Target names the role, field or reference that could not be processed
	Target string `json:"target,omitempty"`
	Cause  error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	msg := e.Message
	if e.Target != "" {
		msg = e.Target + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// WithTarget returns a copy of the error naming the failing target
func (e *DomainError) WithTarget(target string) *DomainError {
	cp := *e
	cp.Target = target
	return &cp
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
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
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Message processing errors
var (
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Message failed validation")
	ErrAuthorityNotFound   = NewDomainError("AUTHORITY_NOT_FOUND", "Assigning authority not found")
	ErrLocationNotFound    = NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	ErrOrderNotFound       = NewDomainError("ORDER_NOT_FOUND", "Original order not found")
	ErrSellerNotFound      = NewDomainError("SELLER_NOT_FOUND", "Seller not found")
	ErrMaterialNotFound    = NewDomainError("MATERIAL_NOT_FOUND", "Material not found")
	ErrInvalidUnit         = NewDomainError("INVALID_UNIT", "Unit of measure is not supported")
	ErrDuplicateIdentifier = NewDomainError("DUPLICATE_IDENTIFIER", "Identifier already assigned by this authority")
	ErrDuplicateMessage    = NewDomainError("DUPLICATE_MESSAGE", "Message was already processed")
	ErrPersistence         = NewDomainError("PERSISTENCE_ERROR", "Failed to persist changes")
	ErrTransport           = NewDomainError("TRANSPORT_ERROR", "Failed to deliver message")
)

// IsResolutionError reports whether err belongs to the resolution family:
// a referenced authority, location, order, seller or material could not be found.
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrAuthorityNotFound) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrSellerNotFound) ||
		errors.Is(err, ErrMaterialNotFound)
}
