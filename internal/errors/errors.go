// Package errors wraps the standard errors package with the error categories
// used by the alerting engine. Categories drive propagation policy: validation
// errors are rejected at the write boundary, evaluation errors fail closed,
// dispatch and delivery errors are recorded on the affected notification.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies an error for propagation and reporting.
type Category string

const (
	// CategoryValidation marks malformed rules rejected at write time.
	CategoryValidation Category = "validation"
	// CategoryEvaluation marks condition evaluation faults (e.g. missing
	// snapshot field). These fail closed and never cross the evaluator boundary.
	CategoryEvaluation Category = "evaluation"
	// CategoryDispatch marks immediate channel sender rejections.
	CategoryDispatch Category = "dispatch"
	// CategoryDeliveryTimeout marks notifications with no provider callback
	// within the configured window.
	CategoryDeliveryTimeout Category = "delivery_timeout"
	// CategoryNone is the zero category for uncategorized errors.
	CategoryNone Category = ""
)

// Error carries a category alongside a wrapped cause.
type Error struct {
	category Category
	msg      string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		if e.msg != "" {
			return e.msg + ": " + e.cause.Error()
		}
		return e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Category returns the error's category.
func (e *Error) Category() Category { return e.category }

// Newf creates a categorized error from a format string.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{category: category, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a category and message to an existing error.
// Returns nil if err is nil.
func Wrap(category Category, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{category: category, msg: msg, cause: err}
}

// CategoryOf returns the category of err, or CategoryNone if err carries none.
func CategoryOf(err error) Category {
	var e *Error
	if As(err, &e) {
		return e.category
	}
	return CategoryNone
}

// Standard library re-exports so callers need a single errors import.

// New creates a plain error with the given text.
func New(text string) error { return stderrors.New(text) }

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree matching target's type.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join wraps the given errors into a single error.
func Join(errs ...error) error { return stderrors.Join(errs...) }
