// Package errors defines the engine's discriminated error taxonomy.
package errors

import (
	"errors"
	"fmt"
)

// Error codes. The first block is the engine's error surface; the second
// covers the ambient service shell (configuration, persistence, storage).
const (
	CodePresetValidation  = "PRESET_VALIDATION_ERROR"
	CodePatternInvalid    = "PATTERN_INVALID"
	CodeUnknownId         = "UNKNOWN_ID"
	CodeIterationCap      = "ITERATION_CAP_EXCEEDED"
	CodeCanceled          = "EXECUTION_CANCELED"
	CodeInvariantViolated = "INVARIANT_VIOLATION"

	CodeConfigError   = "CONFIG_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeUnknown       = "UNKNOWN_ERROR"
)

// AppError is a discriminated application error: a stable code, a
// human-readable message, and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error

	// Fields carries structured, code-specific detail (e.g. the list of
	// preset violations, or the offending invariant key).
	Fields map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError with no wrapped cause.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WithField returns a copy of e with field set to value.
func (e *AppError) WithField(field string, value interface{}) *AppError {
	cp := *e
	cp.Fields = make(map[string]interface{}, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[field] = value
	return &cp
}

// PresetValidationError reports every violation found while validating a
// preset (every RHS variable bound on LHS, pattern grammar, options
// ranges). violations is never empty.
func PresetValidationError(violations []string) *AppError {
	return New(CodePresetValidation, "preset failed validation").
		WithField("violations", violations)
}

// PatternInvalidErr reports a single pattern-grammar problem, caught
// eagerly at preset load time: an RHS variable absent from the LHS, or a
// malformed pattern string.
func PatternInvalidErr(rule string, reason string) *AppError {
	return New(CodePatternInvalid, fmt.Sprintf("rule %q: %s", rule, reason)).
		WithField("rule", rule)
}

// UnknownIdErr reports a lookup for an id never allocated by the
// union-find — a programming error by the embedder; fail fast.
func UnknownIdErr(id interface{}) *AppError {
	return New(CodeUnknownId, fmt.Sprintf("unknown id: %v", id)).
		WithField("id", id)
}

// IterationCapExceeded reports a clean halt due to the configured
// iteration or node cap.
func IterationCapExceeded(cap int, reason string) *AppError {
	return New(CodeIterationCap, reason).WithField("cap", cap)
}

// ExecutionCanceled reports a clean halt due to caller-requested
// cancellation.
func ExecutionCanceled() *AppError {
	return New(CodeCanceled, "execution canceled")
}

// InvariantViolationErr reports a detected bug — an invariant that should
// be impossible to violate from legitimate input. Carries the first
// offending key.
func InvariantViolationErr(key string, detail string) *AppError {
	return New(CodeInvariantViolated, fmt.Sprintf("invariant %s violated: %s", key, detail)).
		WithField("key", key)
}

// Common ambient-stack error instances, in the teacher's sentinel style.
var (
	ErrConfigError   = New(CodeConfigError, "configuration error")
	ErrDatabaseError = New(CodeDatabaseError, "database error")
	ErrStorageError  = New(CodeStorageError, "storage error")
	ErrNotFound      = New(CodeNotFound, "resource not found")
)

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// IsStorageError checks if the error is a storage error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
}

// IsInvariantViolation checks if the error is an engine invariant violation.
func IsInvariantViolation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeInvariantViolated
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
