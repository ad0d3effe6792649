package models

import "net/http"

// ErrorCode is a small closed set of machine-readable error identifiers
// returned alongside every failed response.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrUnknownSymbol  ErrorCode = "UNKNOWN_SYMBOL"
	ErrUnknownUser    ErrorCode = "UNKNOWN_USER"
	ErrDuplicateUser  ErrorCode = "DUPLICATE_USER"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrInsufficient   ErrorCode = "INSUFFICIENT_RESOURCE"
	ErrOrderNotFound  ErrorCode = "ORDER_NOT_FOUND"
	ErrNotOwner       ErrorCode = "ORDER_NOT_OWNED"
	ErrOrderTerminal  ErrorCode = "ORDER_TERMINAL"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// APIError is the structured error body of a failed response.
type APIError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HTTPError wraps an APIError with the status code it maps to.
type HTTPError struct {
	StatusCode int
	Error      APIError
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(statusCode int, code ErrorCode, message string, details map[string]interface{}) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Error: APIError{Code: code, Message: message, Details: details}}
}

func ErrBadRequest(message string, details map[string]interface{}) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, ErrInvalidRequest, message, details)
}

func ErrInternal(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, ErrInternalError, message, nil)
}

// FromEngineKind maps an engine.Kind string to the HTTP status/code this
// driver reports for it.
func FromEngineKind(kind, message string) *HTTPError {
	switch kind {
	case "VALIDATION":
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRequest, message, nil)
	case "RESOURCE":
		return NewHTTPError(http.StatusConflict, ErrInsufficient, message, nil)
	case "STATE":
		return NewHTTPError(http.StatusNotFound, ErrOrderNotFound, message, nil)
	case "IO":
		return NewHTTPError(http.StatusServiceUnavailable, ErrInternalError, message, nil)
	default:
		return ErrInternal(message)
	}
}
