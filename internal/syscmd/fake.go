package syscmd

import (
	"context"
	"strings"
	"sync"
)

// FakeResponse is the scripted result of one command.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err is returned from Run as is, bypassing ExitCode
	Err error
}

// FakeRunner is a scripted Runner for tests. Only tools passed to
// NewFakeRunner are installed; commands without a scripted response exit
// with code 1.
type FakeRunner struct {
	mu        sync.Mutex
	tools     map[string]bool
	responses map[string]FakeResponse
	calls     []Command
}

// NewFakeRunner creates a FakeRunner with the given tools installed.
func NewFakeRunner(tools ...string) *FakeRunner {
	f := &FakeRunner{
		tools:     make(map[string]bool),
		responses: make(map[string]FakeResponse),
	}
	for _, t := range tools {
		f.tools[t] = true
	}
	return f
}

func fakeKey(tool string, args []string) string {
	return strings.Join(append([]string{tool}, args...), "\x00")
}

// On scripts the response for an exact command line.
func (f *FakeRunner) On(resp FakeResponse, tool string, args ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[fakeKey(tool, args)] = resp
	return f
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(tool string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tools[tool] {
		return "", &ToolUnavailableError{Tool: tool}
	}
	return "/usr/bin/" + tool, nil
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if _, err := f.LookPath(cmd.Tool); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	resp, ok := f.responses[fakeKey(cmd.Tool, cmd.Args)]
	f.mu.Unlock()

	if !ok {
		resp = FakeResponse{ExitCode: 1, Stderr: "unexpected command: " + cmd.String()}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	res := &Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	return res, checkResult(cmd, res, nil)
}

// Calls returns every command run so far.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Ran reports whether a command with tool and leading args was run.
func (f *FakeRunner) Ran(tool string, args ...string) bool {
	for _, c := range f.Calls() {
		if c.Tool != tool || len(c.Args) < len(args) {
			continue
		}
		match := true
		for i, a := range args {
			if c.Args[i] != a {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
