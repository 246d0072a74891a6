// Package syscmd runs the external system tools the daemon depends on.
//
// Tools are reached through the Runner interface. ExecRunner captures
// stdout and stderr of a real process and classifies the outcome:
//
//   - a tool that is not installed yields *ToolUnavailableError
//   - a tool that exits non-zero yields *ToolFailureError, whose text is
//     the trimmed stderr (or stdout when stderr is empty)
//   - a run that outlives the configured timeout yields *TimeoutError
//
// No timeout is applied by default, so a hung tool blocks its caller.
//
// Goals that can be reached through several tools are modelled as a Chain
// of Strategy values tried in order. The first non-empty result wins; if
// all fail, an *ExhaustedError lists each attempt's reason.
//
// FakeRunner scripts tool output for tests in other packages.
package syscmd
