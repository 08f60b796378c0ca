package dto

import (
	"net/http"

	"github.com/freightmarket/backend/internal/domain/shared"
)

// Codes carried over from marketplace errors.
const (
	ErrCodeValidation          = shared.CodeValidation
	ErrCodeUnauthorized        = shared.CodeUnauthorized
	ErrCodeForbidden           = shared.CodeForbidden
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeConflict            = shared.CodeConflict
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict
	ErrCodeInvalidState        = shared.CodeInvalidState
	ErrCodeInvalidTransition   = shared.CodeInvalidTransition
	ErrCodeDuplicateBid        = shared.CodeDuplicateBid
	ErrCodeAlreadyRated        = shared.CodeAlreadyRated
	ErrCodeExpired             = shared.CodeExpired
	ErrCodeInternal            = shared.CodeInternal
)

// Codes raised by middleware before a request reaches a service.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "TOKEN_INVALID"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// HTTPStatus maps an error code to its status. Every state or concurrency
// clash is a 409; unknown codes are 500.
func HTTPStatus(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInvalidJSON:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeConcurrencyConflict, ErrCodeInvalidState,
		ErrCodeInvalidTransition, ErrCodeDuplicateBid, ErrCodeAlreadyRated:
		return http.StatusConflict
	case ErrCodeExpired:
		return http.StatusGone
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
