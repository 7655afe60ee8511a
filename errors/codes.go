package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Declaration errors
const (
	// ErrCodeMissingDescriptor indicates a unit directory lacks its Make/files.
	ErrCodeMissingDescriptor ErrorCode = "MISSING_DESCRIPTOR"
	// ErrCodeMalformedDescriptor indicates Make/files declares neither EXE nor LIB.
	ErrCodeMalformedDescriptor ErrorCode = "MALFORMED_DESCRIPTOR"
)

// Resolution errors
const (
	// ErrCodeUnresolvedDependency indicates no unit produces a declared library.
	ErrCodeUnresolvedDependency ErrorCode = "UNRESOLVED_DEPENDENCY"
	// ErrCodeAmbiguousDependency indicates several units produce the same library.
	ErrCodeAmbiguousDependency ErrorCode = "AMBIGUOUS_DEPENDENCY"
	// ErrCodeCyclicDependency indicates the dependency graph contains a cycle.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
)

// Execution errors
const (
	// ErrCodeBuildFailure indicates the external build tool reported failure.
	ErrCodeBuildFailure ErrorCode = "BUILD_FAILURE"
	// ErrCodeTimeout indicates an operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the run was interrupted.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Input errors
const (
	// ErrCodeInvalidInput indicates invalid configuration or arguments.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required setting is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeStorage indicates the run history store failed.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeBuildFailure: true,
	ErrCodeTimeout:      true,
	ErrCodeStorage:      true,
	ErrCodeInternal:     false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// Exit statuses reported by the CLI.
const (
	ExitFailure     = 1
	ExitUsage       = 2
	ExitGraph       = 3
	ExitBuild       = 4
	ExitInterrupted = 130
)

var exitCodes = map[ErrorCode]int{
	ErrCodeMissingDescriptor:    ExitGraph,
	ErrCodeMalformedDescriptor:  ExitGraph,
	ErrCodeUnresolvedDependency: ExitGraph,
	ErrCodeAmbiguousDependency:  ExitGraph,
	ErrCodeCyclicDependency:     ExitGraph,
	ErrCodeBuildFailure:         ExitBuild,
	ErrCodeTimeout:              ExitBuild,
	ErrCodeCanceled:             ExitInterrupted,
	ErrCodeInvalidInput:         ExitUsage,
	ErrCodeMissingField:         ExitUsage,
}

// ExitCodeFor returns the process exit status for an error code.
func ExitCodeFor(code ErrorCode) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitFailure
}
