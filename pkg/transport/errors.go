package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/storage"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeBadCredentials, api.ErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	case api.ErrorTypeForbidden:
		return http.StatusForbidden
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError converts err into an APIError. APIErrors anywhere in the chain
// are returned as is; storage sentinels become not_found and login_conflict;
// everything else becomes a server_error whose message does not leak the
// underlying cause.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError("resource not found")
	case errors.Is(err, storage.ErrConflict):
		return api.NewConflictError("", "resource already exists")
	default:
		return api.NewServerError("internal server error")
	}
}

// WriteErrorResponse writes a JSON error body with an explicit status code.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.NewErrorResponse(apiErr, statusCode, r.URL.Path, time.Now()))
}

// WriteError writes err as a JSON error body, deriving the status code from
// its type. Server errors are logged with the original cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := AsAPIError(err)
	status := HTTPStatusFromError(apiErr)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	WriteErrorResponse(w, r, apiErr, status)
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response body failed", "error", err)
	}
}
