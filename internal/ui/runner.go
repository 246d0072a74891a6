package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds the presentation of a multi-step client command
type RunnerConfig struct {
	Title           string            // Command title (e.g., "Update Settings")
	Command         string            // Full command (e.g., "zerostock-cfg set")
	Params          map[string]string // Parameters to display in header
	StepNames       []string          // Names for each step
	Troubleshooting []string          // Tips shown when the operation fails
	Output          io.Writer         // Output writer (default: os.Stdout)
}

// Runner manages the header, step list and result flow of a command and
// hands the operation a callback for reporting progress.
type Runner struct {
	config    RunnerConfig
	header    *Header
	steps     *StepList
	output    io.Writer
	startTime time.Time
	width     int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	header := NewHeader(config.Title, config.Command, config.Params)
	header.SetWidth(width)

	var steps *StepList
	if len(config.StepNames) > 0 {
		steps = NewStepList(config.StepNames, width)
	}

	return &Runner{
		config: config,
		header: header,
		steps:  steps,
		output: config.Output,
		width:  width,
	}
}

// Operation is the work a Runner presents. It returns the details shown in
// the success box.
type Operation func(onStep StepCallback) (map[string]string, error)

// Run prints the header, executes the operation and prints the result.
func (r *Runner) Run(operation Operation) (map[string]string, error) {
	r.startTime = time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(r.createStepCallback())
	duration := time.Since(r.startTime)

	if r.steps != nil {
		_, _ = fmt.Fprintln(r.output)
		_, _ = fmt.Fprintln(r.output, r.steps.Bar())
	}
	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		tips := r.config.Troubleshooting
		var tipper interface{ Troubleshooting() []string }
		if errors.As(err, &tipper) {
			if t := tipper.Troubleshooting(); len(t) > 0 {
				tips = t
			}
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips)
		result.SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return details, err
	}

	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	result := NewSuccessResult(r.config.Title+" complete", details)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return details, nil
}

// createStepCallback creates the step callback function
func (r *Runner) createStepCallback() StepCallback {
	return func(stepNumber int, name string, status StepStatus, message string) {
		if r.steps == nil {
			return
		}
		if _, ok := r.steps.Update(stepNumber, name, status, message); !ok {
			return
		}

		line := r.steps.Line(stepNumber)
		switch {
		case status.finished():
			_, _ = fmt.Fprintln(r.output, line)
		case status == StepRunning:
			// Overwritten when the step finishes
			_, _ = fmt.Fprint(r.output, line+"\r")
		}
	}
}
