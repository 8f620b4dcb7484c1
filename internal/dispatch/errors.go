package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for dispatch failures. Use errors.Is to check.
var (
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
	ErrToolExecutionFailure = errors.New("tool execution failed")
)

// ToolExecutionError wraps an error returned by the tool implementation itself.
// It matches both ErrToolExecutionFailure and the underlying error.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s execution failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() []error {
	return []error{ErrToolExecutionFailure, e.Err}
}

func invalidArguments(tool string, reason error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidToolArguments, tool, reason)
}
