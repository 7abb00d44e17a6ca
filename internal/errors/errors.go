// Package errors provides a lightweight structured error type (DPCError)
// for category-based classification of pipeline, handler and CLI failures.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a dirprocess error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Template resolution and evaluation errors
	CategoryTemplate ErrorCategory = "template"
	CategoryRender   ErrorCategory = "render"

	// Processing errors
	CategoryHandler    ErrorCategory = "handler"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// DPCError is a structured error with category, severity and context
type DPCError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for DPCError
type ContextFields map[string]any

// Error implements the error interface
func (e *DPCError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *DPCError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DPCError) WithContext(key string, value any) *DPCError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new DPCError
func New(category ErrorCategory, severity ErrorSeverity, message string) *DPCError {
	return &DPCError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new DPCError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *DPCError {
	return &DPCError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the first DPCError in err's chain.
func As(err error) (*DPCError, bool) {
	var dpe *DPCError
	if stderrors.As(err, &dpe) {
		return dpe, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if dpe, ok := As(err); ok {
		return dpe.Category == category
	}
	return false
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	if dpe, ok := As(err); ok {
		return dpe.Severity == SeverityFatal
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a DPCError
func GetCategory(err error) ErrorCategory {
	if dpe, ok := As(err); ok {
		return dpe.Category
	}
	return CategoryInternal
}
