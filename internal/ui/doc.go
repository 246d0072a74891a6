// Package ui renders terminal output for the zerostock-cfg client.
//
// Output follows a "run once and exit" pattern built on Lipgloss: a
// command Header, a step list while the request is in flight, then a
// Result box. WaitForStatus shows a Bubble Tea spinner while the client
// waits for the daemon's status reply, and falls back to a plain blocking
// call when stdout is not a terminal.
//
// # Usage Pattern
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Update Settings",
//	    Command:   "zerostock-cfg set",
//	    Params:    map[string]string{"Device": "zerostock.local"},
//	    StepNames: []string{"Validate", "Connect", "Send", "Wait for status"},
//	})
//
//	_, err := runner.Run(func(onStep ui.StepCallback) (map[string]string, error) {
//	    onStep(1, "", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "", ui.StepComplete, "")
//	    return map[string]string{"Status": "ok"}, nil
//	})
//
// # Logging Integration
//
// zap logging is silent unless ZEROSTOCK_LOG_LEVEL is set, so the curated
// UI output is displayed cleanly.
package ui
