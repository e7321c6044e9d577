package errors

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrProfileNotFound is returned when a profile is missing or not visible.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrContentNotFound is returned when a content item is missing or not visible.
	ErrContentNotFound = errors.New("content item not found")
	// ErrForbidden is returned when a write is refused by the access policy.
	ErrForbidden = errors.New("not allowed")
	// ErrPolicyRecursion is returned when the admin predicate is re-entered
	// while it is already being evaluated for the same principal.
	ErrPolicyRecursion = errors.New("recursive policy evaluation")
	// ErrInvalidTransition is returned when a status change leaves a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRejectionNotesRequired is returned when rejecting without notes.
	ErrRejectionNotesRequired = errors.New("rejection notes are required")
	// ErrRejectionIncomplete is returned when rejection notes and timestamp disagree with the status.
	ErrRejectionIncomplete = errors.New("rejection notes and timestamp must be set together with rejected status")
	// ErrInvalidContentType is returned for an unknown content type.
	ErrInvalidContentType = errors.New("invalid content type")
	// ErrInvalidStatus is returned for an unknown status.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrAssigneeRequired is returned when a content item has no assignee.
	ErrAssigneeRequired = errors.New("assignee is required")
	// ErrAssigneeNotFound is returned when the assignee has no profile.
	ErrAssigneeNotFound = errors.New("assignee not found")
	// ErrUnauthenticated is returned when no principal could be established.
	ErrUnauthenticated = errors.New("authentication required")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mapping = []struct {
	target error
	status int
	code   string
}{
	{ErrProfileNotFound, http.StatusNotFound, "PROFILE_NOT_FOUND"},
	{ErrContentNotFound, http.StatusNotFound, "CONTENT_NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{ErrRejectionNotesRequired, http.StatusBadRequest, "REJECTION_NOTES_REQUIRED"},
	{ErrRejectionIncomplete, http.StatusBadRequest, "REJECTION_INCOMPLETE"},
	{ErrInvalidContentType, http.StatusBadRequest, "INVALID_CONTENT_TYPE"},
	{ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{ErrAssigneeRequired, http.StatusBadRequest, "ASSIGNEE_REQUIRED"},
	{ErrAssigneeNotFound, http.StatusBadRequest, "ASSIGNEE_NOT_FOUND"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are
// matched with errors.Is; anything unknown becomes a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mapping {
		if errors.Is(err, m.target) {
			return NewHTTPError(m.status, m.target.Error(), m.code)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewHTTPError(http.StatusServiceUnavailable, "request timed out", "TIMEOUT")
	}
	// ErrPolicyRecursion lands here on purpose: callers only see a generic failure.
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
