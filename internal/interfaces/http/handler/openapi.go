package handler

import "github.com/freightmarket/backend/internal/interfaces/http/dto"

// APIResponse is the typed form of dto.Response used by the swag
// annotations and by tests that decode a payload.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents failure bodies.
type ErrorResponse = APIResponse[struct{}]
