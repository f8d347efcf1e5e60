package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the kinds of failures the engine distinguishes.
type ErrorCategory string

const (
	// Problems with the caller's inputs; never retryable, always fail closed.
	ErrorCategoryValidation ErrorCategory = "VALIDATION"

	// Writing guard state to durable storage failed. The in-memory verdict is
	// still valid, but the mutation is not durable and must be surfaced.
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"

	// Not enough history to compute a statistic; a conservative default was
	// used instead. Informational, distinguishable from real denials in logs.
	ErrorCategoryInsufficientData ErrorCategory = "INSUFFICIENT_DATA"

	// Startup-time configuration problems.
	ErrorCategoryConfig ErrorCategory = "CONFIG"
)

// ErrStateNotDurable is the sentinel wrapped by every persistence error so
// callers can detect the condition with errors.Is regardless of the cause.
var ErrStateNotDurable = errors.New("guard state not durable")

// EngineError is a categorized error with component and operation context.
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is lets errors.Is match persistence errors against ErrStateNotDurable even
// when a concrete cause is attached.
func (e *EngineError) Is(target error) bool {
	return target == ErrStateNotDurable && e.Category == ErrorCategoryPersistence
}

// NewValidationError reports a malformed or out-of-range input.
func NewValidationError(component, operation, message string) *EngineError {
	return &EngineError{
		Category:  ErrorCategoryValidation,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// NewPersistenceError wraps a failed state write.
func NewPersistenceError(component, operation string, err error) *EngineError {
	return &EngineError{
		Category:   ErrorCategoryPersistence,
		Component:  component,
		Operation:  operation,
		Message:    "state write failed",
		Underlying: err,
	}
}

// NewConfigError reports an invalid configuration value.
func NewConfigError(component, message string) *EngineError {
	return &EngineError{
		Category:  ErrorCategoryConfig,
		Component: component,
		Operation: "validate",
		Message:   message,
	}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Category == ErrorCategoryValidation
}

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrStateNotDurable)
}
