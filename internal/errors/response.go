package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorDetail is the public shape of an error in API responses.
type ErrorDetail struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope returned by handlers for any failed request.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse converts any error into a transport-safe response,
// preferring the hint over the raw message when one was set.
func NewErrorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{
		Success: false,
		Error:   ErrorDetail{Message: "An unexpected error occurred"},
	}

	var ie *InternalError
	if errors.As(err, &ie) {
		if ie.Hint() != "" {
			resp.Error.Message = ie.Hint()
		} else {
			resp.Error.Message = ie.Error()
		}
		resp.Error.Details = ie.ReportableDetails()
		return resp
	}

	if err != nil {
		resp.Error.Message = err.Error()
	}
	return resp
}

// HTTPStatusFromErr maps sentinel marks to HTTP status codes.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err):
		return http.StatusConflict
	case IsValidation(err), IsInvalidOperation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
