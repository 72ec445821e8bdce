package api

import (
	"fmt"
	"time"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeBadCredentials  ErrorType = "bad_credentials"
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeConflict        ErrorType = "login_conflict"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
)

// APIError represents a structured API error with type, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     ErrorType `json:"error"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// NewErrorResponse builds the error body for apiErr at the given status and path.
func NewErrorResponse(apiErr *APIError, status int, path string, now time.Time) ErrorResponse {
	return ErrorResponse{
		Status:    status,
		Error:     apiErr.Type,
		Message:   apiErr.Message,
		Param:     apiErr.Param,
		Timestamp: now.UTC(),
		Path:      path,
	}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewBadCredentialsError creates the single error returned for every failed
// sign-in, whether the login is unknown or the password is wrong.
func NewBadCredentialsError() *APIError {
	return &APIError{
		Type:    ErrorTypeBadCredentials,
		Message: "bad credentials",
	}
}

// NewUnauthenticatedError creates an APIError for requests that reach a
// protected route without a valid token.
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthenticated,
		Message: "full authentication is required to access this resource",
	}
}

// NewForbiddenError creates an APIError for authenticated callers whose role
// does not satisfy the route.
func NewForbiddenError(message string) *APIError {
	if message == "" {
		message = "access denied"
	}
	return &APIError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// NewConflictError creates an APIError for uniqueness violations.
func NewConflictError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeConflict,
		Param:   param,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}
