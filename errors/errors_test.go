package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeMissingDescriptor, "no Make/files")
	if err.Code != ErrCodeMissingDescriptor {
		t.Errorf("expected code %s, got %s", ErrCodeMissingDescriptor, err.Code)
	}
	if err.Message != "no Make/files" {
		t.Errorf("expected message 'no Make/files', got %q", err.Message)
	}
	if err.ExitCode != ExitGraph {
		t.Errorf("expected exit code %d, got %d", ExitGraph, err.ExitCode)
	}
	if err.Retryable {
		t.Error("MISSING_DESCRIPTOR should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out")
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_MissingDescriptor(t *testing.T) {
	cause := fmt.Errorf("open Make/files: no such file")
	err := MissingDescriptor("/src/foo", cause)
	if err.Details["unit"] != "/src/foo" {
		t.Errorf("expected unit=/src/foo, got %v", err.Details["unit"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if !strings.Contains(err.Error(), "/src/foo") {
		t.Errorf("expected directory in message, got %q", err.Error())
	}
}

func TestAppError_CyclicDependency(t *testing.T) {
	err := CyclicDependency([]string{"x", "y", "x"})
	if err.Code != ErrCodeCyclicDependency {
		t.Errorf("expected CYCLIC_DEPENDENCY, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "x -> y -> x") {
		t.Errorf("expected cycle path in message, got %q", err.Message)
	}
}

func TestAppError_AmbiguousDependency(t *testing.T) {
	err := AmbiguousDependency("/src/app", "core", []string{"/a", "/b"})
	if err.Details["dependency"] != "core" {
		t.Errorf("expected dependency=core, got %v", err.Details["dependency"])
	}
	if !strings.Contains(err.Message, "2 units") {
		t.Errorf("expected candidate count in message, got %q", err.Message)
	}
}

func TestAppError_BuildFailure(t *testing.T) {
	err := BuildFailure("/src/lib", 2, fmt.Errorf("exit status 2"))
	if err.ExitCode != ExitBuild {
		t.Errorf("expected exit code %d, got %d", ExitBuild, err.ExitCode)
	}
	if err.Details["exit_code"] != 2 {
		t.Errorf("expected exit_code=2, got %v", err.Details["exit_code"])
	}
}

func TestAppError_InvalidInput_Success(t *testing.T) {
	err := InvalidInput("build.workers", "must be positive")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "build.workers" {
		t.Errorf("expected field=build.workers, got %v", err.Details["field"])
	}

	noField := InvalidInput("", "bad")
	if _, ok := noField.Details["field"]; ok {
		t.Error("expected no 'field' key when field is empty")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := UnresolvedDependency("/src/app", "foo").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["unit"] != "/src/app" {
		t.Error("expected original details to be preserved")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Internal(cause)
	if stderrors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return cause")
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", Timeout("build"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected wrapped AppError to be found")
	}
	if appErr.Code != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", appErr.Code)
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("expected plain error not to convert")
	}
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to be true")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", CyclicDependency([]string{"a", "a"}))
	if !IsCode(err, ErrCodeCyclicDependency) {
		t.Error("expected CYCLIC_DEPENDENCY")
	}
	if IsCode(err, ErrCodeBuildFailure) {
		t.Error("did not expect BUILD_FAILURE")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", fmt.Errorf("boom"), ExitFailure},
		{"usage", MissingField("project.root"), ExitUsage},
		{"graph", CyclicDependency([]string{"a", "a"}), ExitGraph},
		{"build wrapped", fmt.Errorf("run: %w", BuildFailure("u", 1, nil)), ExitBuild},
		{"canceled", Canceled(nil), ExitInterrupted},
		{"storage", StorageError("insert", nil), ExitFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode() = %d, want %d", got, tc.want)
			}
		})
	}
}
