package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/zerostock/internal/protocol"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType        // Success, failure, or warning
	Title           string            // e.g., "Settings updated"
	Details         map[string]string // Key-value details to display
	Error           error             // Error (for failure results)
	Troubleshooting []string          // Troubleshooting tips (for failure results)
	Width           int               // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewStatusResult turns a daemon status reply into a result box.
func NewStatusResult(status string, details map[string]string) *Result {
	if !protocol.IsError(status) {
		return NewSuccessResult("Settings applied", details)
	}
	r := NewFailureResult("Request rejected", errors.New(protocol.ErrorReason(status)), TroubleshootingFor(status))
	r.Details = details
	return r
}

// StatusError is an "error:" status returned by the daemon, carried as a Go
// error through a Runner operation.
type StatusError struct {
	Status string
}

func (e *StatusError) Error() string {
	return protocol.ErrorReason(e.Status)
}

// Troubleshooting returns the tips matching the status
func (e *StatusError) Troubleshooting() []string {
	return TroubleshootingFor(e.Status)
}

// TroubleshootingFor suggests next steps for an error status.
func TroubleshootingFor(status string) []string {
	reason := protocol.ErrorReason(status)
	switch {
	case strings.HasPrefix(reason, "failed to update config"):
		return []string{
			"Check the settings file path in /etc/zerostock/cfgd.yaml",
			"Check the daemon can write to the settings directory",
			"Try: zerostock-cfgd restore to put back the previous file",
		}
	case strings.HasPrefix(reason, "wifi provisioning failed"):
		return []string{
			"Check the SSID and passphrase",
			"Try: zerostock-cfgd doctor to list missing network tools",
		}
	case strings.HasPrefix(reason, "restart failed"):
		return []string{
			"Check the service name (service.name)",
			"The daemon needs permission to run systemctl restart",
		}
	default:
		return nil
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	var color lipgloss.Color
	var title string
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
	case ResultWarning:
		color = WarningColor
		title = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", r.Title))
	default:
		color = SuccessColor
		title = SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
	}

	lines := []string{"", title, ""}

	if r.Type == ResultFailure && r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Details) > 0 {
		for _, key := range sortedKeys(r.Details) {
			keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", key))
			lines = append(lines, keyStyled+" "+ResultValueStyle.Render(r.Details[key]))
		}
		lines = append(lines, "")
	}

	if r.Type == ResultFailure && len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return resultBoxStyle(color, width).Render(strings.Join(lines, "\n"))
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12 // Indent within outer box
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
