// Package errors provides a lightweight structured error type (LinkTextError)
// for category-based classification in the CLI and infrastructure layers.
//
// Rewrite-time declaration errors are deliberately NOT represented here: they
// render inline in page output and never abort anything (see internal/rewrite).
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a linktext error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// External system integration errors
	CategorySource ErrorCategory = "source"
	CategoryStore  ErrorCategory = "store"
	CategoryNotify ErrorCategory = "notify"

	// Processing and runtime errors
	CategoryRender   ErrorCategory = "render"
	CategoryDaemon   ErrorCategory = "daemon"
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

// LinkTextError is a structured error with category, severity, and context
type LinkTextError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for LinkTextError
type ContextFields map[string]any

// Error implements the error interface
func (e *LinkTextError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *LinkTextError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *LinkTextError) WithContext(key string, value any) *LinkTextError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new LinkTextError
func New(category ErrorCategory, severity ErrorSeverity, message string) *LinkTextError {
	return &LinkTextError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new LinkTextError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *LinkTextError {
	return &LinkTextError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if lte, ok := err.(*LinkTextError); ok {
		return lte.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a LinkTextError
func GetCategory(err error) ErrorCategory {
	if lte, ok := err.(*LinkTextError); ok {
		return lte.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error
func ValidationError(message string) *LinkTextError {
	return &LinkTextError{
		Category: CategoryValidation,
		Severity: SeverityWarning,
		Message:  message,
	}
}

// ConfigError creates a new configuration error
func ConfigError(message string) *LinkTextError {
	return &LinkTextError{
		Category: CategoryConfig,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// WrapError wraps an existing error with a new LinkTextError at SeverityError
func WrapError(err error, category ErrorCategory, message string) *LinkTextError {
	return &LinkTextError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}
