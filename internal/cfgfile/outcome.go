package cfgfile

import "github.com/muurk/zerostock/internal/logging"

// Step names reported in an Outcome.
const (
	StepBackup = "backup"
	StepChown  = "chown"
	StepChmod  = "chmod"
)

// Outcome is the result of a best-effort step run after content has been
// committed. It never fails the write; callers log it.
type Outcome struct {
	Step    string
	Applied bool
	Err     error
}

// Ok reports whether the step either succeeded or was not needed
func (o Outcome) Ok() bool {
	return o.Err == nil
}

// Log records the outcome through the global logger.
func (o Outcome) Log() {
	logging.LogOutcome(o.Step, o.Applied, o.Err)
}
