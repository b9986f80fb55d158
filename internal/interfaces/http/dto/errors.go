package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput  = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeUnknownRarity = "ERR_UNKNOWN_RARITY"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Gateway authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
	// ErrCodeForbidden is used when the chat user lacks the privilege for an operation
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeDuplicateRequest is used when an Idempotency-Key was already processed
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
	// ErrCodeExpired is used when a pending exchange outlived its TTL
	ErrCodeExpired = "ERR_EXPIRED"
)

// Exchange rule error codes
const (
	ErrCodeNotOwned             = "ERR_NOT_OWNED"
	ErrCodeInsufficientQuantity = "ERR_INSUFFICIENT_QUANTITY"
	ErrCodeInsufficientFunds    = "ERR_INSUFFICIENT_FUNDS"
	ErrCodeNegativeBalance      = "ERR_NEGATIVE_BALANCE"
	ErrCodeCooldownActive       = "ERR_COOLDOWN_ACTIVE"
	ErrCodeInvalidState         = "ERR_INVALID_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeUnknownRarity:   http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
	ErrCodeExpired:             http.StatusGone,

	ErrCodeNotOwned:             http.StatusUnprocessableEntity,
	ErrCodeInsufficientQuantity: http.StatusUnprocessableEntity,
	ErrCodeInsufficientFunds:    http.StatusUnprocessableEntity,
	ErrCodeNegativeBalance:      http.StatusUnprocessableEntity,
	ErrCodeCooldownActive:       http.StatusUnprocessableEntity,
	ErrCodeInvalidState:         http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes.
// A domain UNAUTHORIZED means the chat user lacks a privilege, which the
// API reports as forbidden; gateway authentication failures use ERR_UNAUTHORIZED.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"UNAUTHORIZED":          ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"CONFLICT":              ErrCodeConflict,
	"EXPIRED":               ErrCodeExpired,
	"NOT_OWNED":             ErrCodeNotOwned,
	"INSUFFICIENT_QUANTITY": ErrCodeInsufficientQuantity,
	"INSUFFICIENT_FUNDS":    ErrCodeInsufficientFunds,
	"NEGATIVE_BALANCE":      ErrCodeNegativeBalance,
	"COOLDOWN_ACTIVE":       ErrCodeCooldownActive,
	"UNKNOWN_RARITY":        ErrCodeUnknownRarity,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
