package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// ExitCode is the process exit status the CLI reports for this error.
	ExitCode int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable and exit code detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
		ExitCode:  ExitCodeFor(code),
	}
}

// --- Declaration errors ---

// MissingDescriptor reports a unit directory whose Make/files cannot be read.
func MissingDescriptor(dir string, cause error) *AppError {
	return New(ErrCodeMissingDescriptor, fmt.Sprintf("unit %s has no readable Make/files", dir)).
		WithDetail("unit", dir).
		WithCause(cause)
}

// MalformedDescriptor reports a Make/files that declares no EXE or LIB target.
func MalformedDescriptor(dir, reason string) *AppError {
	return New(ErrCodeMalformedDescriptor, fmt.Sprintf("unit %s: %s", dir, reason)).
		WithDetail("unit", dir)
}

// --- Resolution errors ---

// UnresolvedDependency reports a library name that no unit under root produces.
func UnresolvedDependency(unit, dependency string) *AppError {
	return New(ErrCodeUnresolvedDependency,
		fmt.Sprintf("unit %s depends on %q but no library unit produces lib%s", unit, dependency, dependency)).
		WithDetails(map[string]any{"unit": unit, "dependency": dependency})
}

// AmbiguousDependency reports a library name produced by several units.
func AmbiguousDependency(unit, dependency string, candidates []string) *AppError {
	return New(ErrCodeAmbiguousDependency,
		fmt.Sprintf("unit %s depends on %q which is produced by %d units: %s",
			unit, dependency, len(candidates), strings.Join(candidates, ", "))).
		WithDetails(map[string]any{"unit": unit, "dependency": dependency, "candidates": candidates})
}

// CyclicDependency reports a dependency cycle. path lists the units on the
// cycle with the first unit repeated at the end.
func CyclicDependency(path []string) *AppError {
	return New(ErrCodeCyclicDependency, "dependency cycle: "+strings.Join(path, " -> ")).
		WithDetail("cycle", path)
}

// --- Execution errors ---

// BuildFailure reports a unit whose build invocation failed.
func BuildFailure(unit string, exitCode int, cause error) *AppError {
	return New(ErrCodeBuildFailure, fmt.Sprintf("build of %s failed with exit code %d", unit, exitCode)).
		WithDetails(map[string]any{"unit": unit, "exit_code": exitCode}).
		WithCause(cause)
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out", operation)).
		WithDetail("operation", operation)
}

// Canceled reports an interrupted run.
func Canceled(cause error) *AppError {
	return New(ErrCodeCanceled, "run interrupted").WithCause(cause)
}

// --- Input errors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, fmt.Sprintf("invalid input: %s", reason))
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

// MissingField creates a new AppError for a missing required setting.
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("missing required setting: %s", field)).
		WithDetail("field", field)
}

// --- Internal errors ---

// StorageError wraps a run history failure.
func StorageError(operation string, cause error) *AppError {
	return New(ErrCodeStorage, fmt.Sprintf("history %s failed", operation)).
		WithDetail("operation", operation).
		WithCause(cause)
}

// Internal creates a new AppError for an unexpected error.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// ExitCode returns the process exit status for err: 0 for nil, the AppError's
// exit code when err wraps one, and ExitFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr, ok := AsAppError(err); ok && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return ExitFailure
}
