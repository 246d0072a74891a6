package deviceconfig

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestErrorType_String tests error type names
func TestErrorType_String(t *testing.T) {
	tests := map[ErrorType]string{
		ErrTypeValidation:      "Validation Error",
		ErrTypeToolUnavailable: "Tool Unavailable",
		ErrTypeToolFailure:     "Tool Failure",
		ErrTypeIO:              "IO Error",
		ErrTypeOwnership:       "Ownership Error",
		ErrTypeNetwork:         "Network Error",
		ErrTypeHTTP:            "HTTP Error",
		ErrTypeParse:           "Parse Error",
		ErrorType(99):          "ErrorType(99)",
	}
	for et, want := range tests {
		if got := et.String(); got != want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", et, got, want)
		}
	}
}

// TestConfigError_Unwrap tests error chain inspection through wrapping
func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("apply: %w", NewIOError("/tmp/x.cfg", "failed to write temporary file", cause))

	if !IsIOError(err) {
		t.Error("expected IsIOError through wrapping")
	}
	if IsValidationError(err) {
		t.Error("IO error must not be a validation error")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if got := StatusMessage(err); got != "failed to write temporary file: disk full" {
		t.Errorf("StatusMessage() = %q", got)
	}
}

// TestStatusMessage tests reason text for each error flavour
func TestStatusMessage(t *testing.T) {
	if got := StatusMessage(nil); got != "" {
		t.Errorf("StatusMessage(nil) = %q", got)
	}
	if got := StatusMessage(NewValidationError("ticker", "ticker cannot be empty")); got != "ticker cannot be empty" {
		t.Errorf("validation: %q", got)
	}
	if got := StatusMessage(errors.New("plain")); got != "plain" {
		t.Errorf("plain: %q", got)
	}
	own := NewOwnershipError("/x", "chown failed", errors.New("EPERM"))
	if !IsOwnershipError(own) || !strings.Contains(StatusMessage(own), "EPERM") {
		t.Errorf("ownership: %q", StatusMessage(own))
	}
}

// TestIsRetryable tests which client failures are worth repeating
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", NewNetworkError("GET request failed", errors.New("connection refused")), true},
		{"server error", NewHTTPError(503, "unexpected status code: 503"), true},
		{"client error", NewHTTPError(404, "unexpected status code: 404"), false},
		{"parse", NewParseError("failed to parse snapshot", errors.New("eof")), false},
		{"validation", NewValidationError("ticker", "ticker cannot be empty"), false},
		{"plain", errors.New("plain"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
