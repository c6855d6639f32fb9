package errors

import (
	"github.com/cockroachdb/errors"
)

// ErrorBuilder provides a fluent API for constructing InternalError values.
// The terminal call is always Mark, which classifies the error against one
// of the package sentinels and returns the built error.
type ErrorBuilder struct {
	err *InternalError
}

// NewError starts a builder from a fresh error message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &InternalError{cause: errors.New(msg)},
	}
}

// NewErrorf starts a builder from a formatted error message.
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{
		err: &InternalError{cause: errors.Newf(format, args...)},
	}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: &InternalError{cause: err},
	}
}

// WithHint attaches a human-readable hint intended for API consumers.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err.hint = hint
	return b
}

// WithHintf attaches a formatted hint.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err.hint = errors.Newf(format, args...).Error()
	return b
}

// WithReportableDetails attaches structured details safe to expose to clients.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.err.reportableDetails = details
	return b
}

// Mark classifies the error with a sentinel and finalizes the build.
func (b *ErrorBuilder) Mark(sentinel error) error {
	b.err.mark = sentinel
	return b.err
}
