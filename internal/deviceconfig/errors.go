package deviceconfig

import (
	"errors"
	"fmt"
)

// Error types for settings and wireless operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeValidation indicates a bad type, range or format in a request.
	// It short-circuits before any mutation.
	ErrTypeValidation ErrorType = iota
	// ErrTypeToolUnavailable indicates a required system tool is missing
	ErrTypeToolUnavailable
	// ErrTypeToolFailure indicates a system tool ran and exited non-zero
	ErrTypeToolFailure
	// ErrTypeIO indicates the settings file could not be written or renamed
	ErrTypeIO
	// ErrTypeOwnership indicates a post-rename chown/chmod failure (never surfaced)
	ErrTypeOwnership
	// ErrTypeNetwork indicates the daemon could not be reached
	ErrTypeNetwork
	// ErrTypeHTTP indicates the daemon answered with an unexpected status code
	ErrTypeHTTP
	// ErrTypeParse indicates a daemon response could not be decoded
	ErrTypeParse
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeToolUnavailable:
		return "Tool Unavailable"
	case ErrTypeToolFailure:
		return "Tool Failure"
	case ErrTypeIO:
		return "IO Error"
	case ErrTypeOwnership:
		return "Ownership Error"
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ConfigError represents an error raised while validating or applying settings
type ConfigError struct {
	Type       ErrorType // Category of error
	Field      string    // Offending request field (validation errors only)
	Path       string    // File involved (IO and ownership errors only)
	StatusCode int       // HTTP status code (HTTP errors only)
	Message    string    // Human-readable error message
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error naming the offending field.
// The message is reported verbatim to the remote caller.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeValidation,
		Field:   field,
		Message: message,
	}
}

// NewIOError creates an error for a failed temporary-file write or rename
func NewIOError(path, message string, err error) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeIO,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

// NewOwnershipError creates an error for a failed post-rename chown/chmod
func NewOwnershipError(path, message string, err error) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeOwnership,
		Path:    path,
		Message: message,
		Err:     err,
	}
}

// NewNetworkError creates an error for a daemon that could not be reached
func NewNetworkError(message string, err error) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewHTTPError creates an error for an unexpected HTTP status code
func NewHTTPError(statusCode int, message string) *ConfigError {
	return &ConfigError{
		Type:       ErrTypeHTTP,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewParseError creates an error for a response that could not be decoded
func NewParseError(message string, err error) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

func hasType(err error, t ErrorType) bool {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Type == t
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrTypeValidation)
}

// IsIOError checks if an error is a settings write failure
func IsIOError(err error) bool {
	return hasType(err, ErrTypeIO)
}

// IsOwnershipError checks if an error is an ownership fix-up failure
func IsOwnershipError(err error) bool {
	return hasType(err, ErrTypeOwnership)
}

// IsNetworkError checks if an error is a connectivity failure
func IsNetworkError(err error) bool {
	return hasType(err, ErrTypeNetwork)
}

// IsRetryable reports whether a client request that failed with err may
// succeed when repeated. Network failures and 5xx answers are retryable.
func IsRetryable(err error) bool {
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		return false
	}
	switch cfgErr.Type {
	case ErrTypeNetwork:
		return true
	case ErrTypeHTTP:
		return cfgErr.StatusCode >= 500
	default:
		return false
	}
}

// StatusMessage returns the reason text reported after "error: " in a
// status reply. Validation errors are reported verbatim; other errors keep
// their underlying cause so the caller can act on it.
func StatusMessage(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		return err.Error()
	}
	switch cfgErr.Type {
	case ErrTypeValidation:
		return cfgErr.Message
	case ErrTypeIO:
		if cfgErr.Err != nil {
			return fmt.Sprintf("%s: %v", cfgErr.Message, cfgErr.Err)
		}
		return cfgErr.Message
	default:
		return cfgErr.Error()
	}
}
