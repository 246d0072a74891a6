package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the state of one step of a client request
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// finished reports whether the step will not change again
func (s StepStatus) finished() bool {
	return s == StepComplete || s == StepFailed || s == StepSkipped
}

// Step is one line of a StepList. Message is a short note such as the
// daemon's status string or the number of verification attempts.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
}

// StepCallback reports a step change; an empty name keeps the current one.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)

// StepList tracks the steps of a request sent to a display (validate, send,
// verify) and renders them one line each, followed by a completion bar.
type StepList struct {
	steps []Step
	bar   progress.Model
}

// NewStepList creates a list with one pending step per name. The bar is
// sized to fit width.
func NewStepList(names []string, width int) *StepList {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Name: name}
	}
	return &StepList{
		steps: steps,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(clamp(width-30, 20, 50)),
		),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Len returns the number of steps
func (l *StepList) Len() int {
	return len(l.steps)
}

// Update changes step n (1-based) and returns it. Out of range numbers are
// ignored.
func (l *StepList) Update(n int, name string, status StepStatus, message string) (Step, bool) {
	if n < 1 || n > len(l.steps) {
		return Step{}, false
	}
	s := &l.steps[n-1]
	if name != "" {
		s.Name = name
	}
	s.Status = status
	s.Message = message
	return *s, true
}

// Done returns the fraction of steps that completed or were skipped
func (l *StepList) Done() float64 {
	if len(l.steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range l.steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			done++
		}
	}
	return float64(done) / float64(len(l.steps))
}

// Failed returns the first failed step, if any
func (l *StepList) Failed() (int, bool) {
	for i, s := range l.steps {
		if s.Status == StepFailed {
			return i + 1, true
		}
	}
	return 0, false
}

// Line renders step n as "[n/total] name  marker  (message)".
func (l *StepList) Line(n int) string {
	if n < 1 || n > len(l.steps) {
		return ""
	}
	s := l.steps[n-1]

	marker, style := StepMarkerPending, StepPendingStyle
	switch s.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker = StepMarkerSkipped
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", n, len(l.steps))
	b.WriteString(style.Render(s.Name))
	b.WriteString(strings.Repeat(" ", max(1, 28-lipgloss.Width(s.Name))))
	b.WriteString(style.Render(marker))
	if s.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + s.Message + ")"))
	}
	return b.String()
}

// Bar renders the completion bar with a finished/total counter.
func (l *StepList) Bar() string {
	finished := 0
	for _, s := range l.steps {
		if s.Status.finished() {
			finished++
		}
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %d/%d", l.bar.ViewAs(l.Done()), finished, len(l.steps)))
}

// Render returns every step followed by the bar
func (l *StepList) Render() string {
	lines := make([]string, 0, len(l.steps)+2)
	for i := range l.steps {
		lines = append(lines, l.Line(i+1))
	}
	lines = append(lines, "", l.Bar())
	return strings.Join(lines, "\n")
}
