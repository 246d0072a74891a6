package syscmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/logging"
)

// Command is one invocation of an external tool.
type Command struct {
	Tool  string
	Args  []string
	Stdin string
	// Secret lists indexes into Args that must not be logged
	Secret []int
}

// New builds a Command.
func New(tool string, args ...string) Command {
	return Command{Tool: tool, Args: args}
}

// WithSecret marks argument indexes as secret for logging.
func (c Command) WithSecret(idx ...int) Command {
	c.Secret = append(append([]int(nil), c.Secret...), idx...)
	return c
}

// LogArgs returns Args with secret arguments redacted.
func (c Command) LogArgs() []string {
	out := append([]string(nil), c.Args...)
	for _, i := range c.Secret {
		if i >= 0 && i < len(out) {
			out[i] = "***"
		}
	}
	return out
}

// String renders the command for keys and logs, secrets redacted
func (c Command) String() string {
	return strings.Join(append([]string{c.Tool}, c.LogArgs()...), " ")
}

// Result is the captured output of a finished tool.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output returns trimmed stdout.
func (r *Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Runner runs external tools. ExecRunner is the real implementation and
// FakeRunner a scripted one for tests.
type Runner interface {
	// LookPath resolves a tool to its path, or returns a ToolUnavailableError.
	LookPath(tool string) (string, error)
	// Run runs the command to completion. A missing tool yields a
	// ToolUnavailableError and a non-zero exit a ToolFailureError; the
	// Result is returned alongside the latter.
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Available reports whether r can find tool
func Available(r Runner, tool string) bool {
	_, err := r.LookPath(tool)
	return err == nil
}

// ExecRunner runs tools with os/exec, capturing stdout and stderr.
type ExecRunner struct {
	// Timeout bounds each run. Zero means no timeout.
	Timeout time.Duration
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", &ToolUnavailableError{Tool: tool}
	}
	return path, nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	path, err := r.LookPath(cmd.Tool)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, path, cmd.Args...)
	c.WaitDelay = time.Second
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = &stdoutBuf
	c.Stderr = &stderrBuf

	start := time.Now()
	err = c.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		// exited cleanly, a leftover child held the output pipes
		err = nil
	}
	res := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	}
	logging.LogToolRun(cmd.Tool, cmd.LogArgs(), res.ExitCode, res.Duration)

	if r.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, &TimeoutError{Tool: cmd.Tool, Timeout: r.Timeout.String()}
	}
	return res, checkResult(cmd, res, err)
}

// checkResult turns a finished run into the error Runner.Run reports.
func checkResult(cmd Command, res *Result, runErr error) error {
	if runErr == nil && res.ExitCode == 0 {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		runErr = nil
	}
	failure := &ToolFailureError{
		Tool:     cmd.Tool,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Err:      runErr,
	}
	logging.Debug("Tool failed",
		zap.String("command", cmd.String()),
		zap.Int("exit_code", res.ExitCode),
		zap.String("reason", failure.Reason()),
	)
	return failure
}
