package syscmd

import (
	"errors"
	"fmt"
	"strings"
)

// ToolUnavailableError means a required executable is not installed.
type ToolUnavailableError struct {
	// Tool is the executable name that could not be found
	Tool string
	// Message replaces the default text when set
	Message string
}

func (e *ToolUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "command not found: " + e.Tool
}

// ToolFailureError means a tool ran but did not exit cleanly.
type ToolFailureError struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
	// Underlying error if the process could not be started or waited on
	Err error
}

// Reason returns the trimmed stderr, or the trimmed stdout when stderr is
// empty. It may be empty.
func (e *ToolFailureError) Reason() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(e.Stdout)
}

func (e *ToolFailureError) Error() string {
	if r := e.Reason(); r != "" {
		return r
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

func (e *ToolFailureError) Unwrap() error {
	return e.Err
}

// TimeoutError means a tool was killed after the configured timeout.
type TimeoutError struct {
	Tool    string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.Timeout)
}

// ErrEmptyResult is returned by a strategy that ran but resolved nothing.
var ErrEmptyResult = errors.New("empty result")

// AttemptFailure records why one strategy did not produce a result.
type AttemptFailure struct {
	Strategy string
	Err      error
}

// ExhaustedError aggregates the failure of every strategy in a chain.
type ExhaustedError struct {
	Goal     string
	Attempts []AttemptFailure
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no strategies configured", e.Goal)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("%s: all strategies failed (%s)", e.Goal, strings.Join(parts, "; "))
}

// Last returns the error of the final attempt, or nil.
func (e *ExhaustedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Unwrap exposes every attempt's error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// IsToolUnavailable reports whether err is or wraps a ToolUnavailableError
func IsToolUnavailable(err error) bool {
	var target *ToolUnavailableError
	return errors.As(err, &target)
}

// IsToolFailure reports whether err is or wraps a ToolFailureError
func IsToolFailure(err error) bool {
	var target *ToolFailureError
	return errors.As(err, &target)
}
