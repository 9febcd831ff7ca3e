package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/logger"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps v in the standard envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteErrorCode writes an error envelope with an explicit code and message.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, Response{
		Error: &ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

// WriteError maps err onto the error envelope. AppErrors keep their own code,
// message and status; anything unclassified becomes a 500 whose detail is
// logged but never sent to the client. The request-scoped logger is preferred
// over fallback when the RequestLogger middleware has stored one.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, r, valErr)
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 && appErr.Status < http.StatusInternalServerError {
		WriteErrorCode(w, r, appErr.Status, appErr.Code, appErr.Message)
		return
	}

	status := apperrors.HTTPStatus(err)
	if status < http.StatusInternalServerError {
		code, message := codeForStatus(status)
		WriteErrorCode(w, r, status, code, message)
		return
	}

	l.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if status == http.StatusServiceUnavailable {
		WriteErrorCode(w, r, status, "SERVICE_UNAVAILABLE", "a dependency is temporarily unavailable")
		return
	}
	WriteErrorCode(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
}

func codeForStatus(status int) (string, string) {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		return "ALREADY_EXISTS", "resource already exists"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED", "authentication required"
	case http.StatusForbidden:
		return "FORBIDDEN", "insufficient permissions"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED", "too many requests"
	default:
		return "INVALID_INPUT", "invalid input"
	}
}

// WriteValidationError writes a standardized validation error response with
// field-level messages when err carries them.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeValidation(w, r, valErr)
		return
	}
	WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}

func writeValidation(w http.ResponseWriter, r *http.Request, valErr *validator.ValidationError) {
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

// ParseUUID validates a path parameter as a UUID. On failure it writes a
// 400 INVALID_PARAMETER response and returns false so the caller can return.
func ParseUUID(w http.ResponseWriter, r *http.Request, name, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid "+name+": "+param)
		return uuid.Nil, false
	}
	return id, true
}
