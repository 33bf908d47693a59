package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for the categories of interpreter failures
const (
	// Source structure
	ErrStructural = "STRUCTURAL_ERROR"

	// Runtime, recovered per statement
	ErrUndefinedStatute = "UNDEFINED_STATUTE_ERROR"
	ErrExpression       = "EXPRESSION_ERROR"
	ErrEvidenceIO       = "EVIDENCE_IO_ERROR"
	ErrVerdictIO        = "VERDICT_IO_ERROR"
	ErrLoopRunaway      = "LOOP_RUNAWAY_WARNING"

	// Runtime, fatal
	ErrRecursionLimit = "RECURSION_LIMIT_ERROR"

	// Host
	ErrFileNotFound = "FILE_NOT_FOUND"
	ErrConfig       = "CONFIG_ERROR"
)

// LegalError represents a structured error with type and context
type LegalError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *LegalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *LegalError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a LegalError of the same type, so callers can
// match on kind with the standard errors.Is.
func (e *LegalError) Is(target error) bool {
	var t *LegalError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates a new LegalError
func New(errorType, message string) *LegalError {
	return &LegalError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a new LegalError wrapping an existing error
func Wrap(errorType, message string, cause error) *LegalError {
	return &LegalError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *LegalError) WithContext(key string, value interface{}) *LegalError {
	e.Context[key] = value
	return e
}

// GetContext returns context value by key
func (e *LegalError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// Kind sentinels for errors.Is matching.
var (
	Structural       = &LegalError{Type: ErrStructural}
	UndefinedStatute = &LegalError{Type: ErrUndefinedStatute}
	Expression       = &LegalError{Type: ErrExpression}
	EvidenceIO       = &LegalError{Type: ErrEvidenceIO}
	VerdictIO        = &LegalError{Type: ErrVerdictIO}
	LoopRunaway      = &LegalError{Type: ErrLoopRunaway}
	RecursionLimit   = &LegalError{Type: ErrRecursionLimit}
	FileNotFound     = &LegalError{Type: ErrFileNotFound}
)

// Helper functions for common error scenarios

// NewStructuralError creates a source structure error
func NewStructuralError(message string) *LegalError {
	return New(ErrStructural, message)
}

// NewUndefinedStatuteError creates an error for a call to an unknown statute
func NewUndefinedStatuteError(name, suggestion string) *LegalError {
	msg := fmt.Sprintf("Statute '%s' not found", name)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean '%s'?)", suggestion)
	}
	return New(ErrUndefinedStatute, msg).
		WithContext("statute", name).
		WithContext("suggestion", suggestion)
}

// NewExpressionError creates an expression evaluation error
func NewExpressionError(expr string, cause error) *LegalError {
	return Wrap(ErrExpression, fmt.Sprintf("Error evaluating expression '%s'", expr), cause).
		WithContext("expression", expr)
}

// NewEvidenceError creates an error for an evidence file that could not be included
func NewEvidenceError(filename string, cause error) *LegalError {
	return Wrap(ErrEvidenceIO, fmt.Sprintf("Error reading evidence file '%s'", filename), cause).
		WithContext("file", filename)
}

// NewVerdictError creates an error for a verdict file that could not be written
func NewVerdictError(filename string, cause error) *LegalError {
	return Wrap(ErrVerdictIO, fmt.Sprintf("Error writing verdict to file '%s'", filename), cause).
		WithContext("file", filename)
}

// NewLoopRunawayWarning reports a loophole stopped by the iteration cap
func NewLoopRunawayWarning(condition string, limit int) *LegalError {
	return New(ErrLoopRunaway, fmt.Sprintf("Loophole execution terminated after %d iterations", limit)).
		WithContext("condition", condition).
		WithContext("limit", limit)
}

// NewRecursionLimitError reports nesting of statute calls or evidence beyond the limit
func NewRecursionLimitError(what string, limit int) *LegalError {
	return New(ErrRecursionLimit, fmt.Sprintf("%s exceeds maximum depth of %d", what, limit)).
		WithContext("limit", limit)
}

// NewFileNotFoundError creates an error for a source that resolves to no file
func NewFileNotFoundError(name string, tried []string) *LegalError {
	return New(ErrFileNotFound, fmt.Sprintf("No file found with name '%s'", name)).
		WithContext("file", name).
		WithContext("tried", tried)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *LegalError {
	return Wrap(ErrConfig, message, cause)
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errorType string) bool {
	var legalErr *LegalError
	for err != nil {
		if !stderrors.As(err, &legalErr) {
			return false
		}
		if legalErr.Type == errorType {
			return true
		}
		err = legalErr.Cause
	}
	return false
}

// IsFatal reports whether err must abort a run rather than be recorded and
// skipped. Only the outermost LegalError counts: an evidence error caused by
// a structural error in the included file is recoverable.
func IsFatal(err error) bool {
	var legalErr *LegalError
	if !stderrors.As(err, &legalErr) {
		return false
	}
	return legalErr.Type == ErrStructural || legalErr.Type == ErrRecursionLimit
}

// Kind returns the type of the outermost LegalError in err, or "" if none
func Kind(err error) string {
	var legalErr *LegalError
	if !stderrors.As(err, &legalErr) {
		return ""
	}
	return legalErr.Type
}
