package errors

import (
	"github.com/cockroachdb/errors"
)

// Standard sentinel errors that services mark their errors with. Handlers and
// callers branch on these via errors.Is rather than string matching.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("item not found")
	ErrAlreadyExists    = errors.New("item already exists")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPermissionDenied = errors.New("permission denied")
	ErrHTTPClient       = errors.New("http client error")
	ErrDatabase         = errors.New("database error")
	ErrSystem           = errors.New("system error")
	ErrInternal         = errors.New("internal error")
)

// InternalError is the rich error type carried through the service layer.
// It wraps a cause, an operator hint, structured details for API responses,
// and a sentinel mark for classification.
type InternalError struct {
	cause             error
	hint              string
	reportableDetails map[string]any
	mark              error
}

func (e *InternalError) Error() string {
	if e.cause == nil {
		return ""
	}
	return e.cause.Error()
}

// Unwrap exposes both the cause chain and the mark so errors.Is works
// against sentinels and wrapped causes alike.
func (e *InternalError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.cause != nil {
		out = append(out, e.cause)
	}
	if e.mark != nil {
		out = append(out, e.mark)
	}
	return out
}

// Hint returns the human-readable hint attached to the error, if any.
func (e *InternalError) Hint() string {
	return e.hint
}

// ReportableDetails returns structured details safe to expose to API clients.
func (e *InternalError) ReportableDetails() map[string]any {
	return e.reportableDetails
}

// Is lets a bare InternalError compare equal to its mark.
func (e *InternalError) Is(target error) bool {
	if e.mark != nil && errors.Is(e.mark, target) {
		return true
	}
	return false
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// Is re-exports errors.Is for callers that only import this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As re-exports errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
