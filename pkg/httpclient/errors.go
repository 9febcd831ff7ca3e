package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
)

const maxErrorBody = 1 << 16

// upstreamError covers the common JSON error shapes returned by metadata
// APIs: {"status_message": ...} and {"error": {"message": ...}}.
type upstreamError struct {
	StatusMessage string `json:"status_message"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (u upstreamError) message() string {
	if u.StatusMessage != "" {
		return u.StatusMessage
	}
	if u.Error != nil {
		return u.Error.Message
	}
	return ""
}

// ParseResponseError drains and closes a non-2xx response body and maps it
// to an AppError. resource and id describe what was requested.
func ParseResponseError(resp *http.Response, upstream, resource, id string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	msg := string(body)
	var parsed upstreamError
	if json.Unmarshal(body, &parsed) == nil && parsed.message() != "" {
		msg = parsed.message()
	}

	return mapStatus(resp.StatusCode, upstream, resource, id, msg)
}

func mapStatus(status int, upstream, resource, id, msg string) error {
	qualified := fmt.Sprintf("%s: %s", upstream, msg)
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(resource, id)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusTooManyRequests:
		return apperrors.Unavailable(upstream + " rate limit exceeded")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// Our credentials, not the caller's.
		return fmt.Errorf("%s rejected credentials (%d): %s", upstream, status, msg)
	case status >= 500:
		return apperrors.Unavailable(qualified)
	default:
		return fmt.Errorf("%s returned status %d: %s", upstream, status, msg)
	}
}
