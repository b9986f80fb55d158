package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// ErrorCode returns the stable machine-readable code
func (e *DomainError) ErrorCode() string {
	return e.Code
}

// Is reports whether target is a DomainError with the same code.
// Errors built with WithMessage keep matching their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
	}
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
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Exchange errors
var (
	ErrNotOwned             = NewDomainError("NOT_OWNED", "Card is not owned by the account")
	ErrInsufficientQuantity = NewDomainError("INSUFFICIENT_QUANTITY", "Not enough units of the card")
	ErrInsufficientFunds    = NewDomainError("INSUFFICIENT_FUNDS", "Not enough crystals")
	ErrNegativeBalance      = NewDomainError("NEGATIVE_BALANCE", "Balance adjustment would go below zero")
	ErrExpired              = NewDomainError("EXPIRED", "Exchange proposal has expired")
	ErrConflict             = NewDomainError("CONFLICT", "Exchange proposal was already handled")
	ErrCooldownActive       = NewDomainError("COOLDOWN_ACTIVE", "Reward was already claimed")
)
