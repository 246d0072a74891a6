// Package service restarts the display's systemd unit after a settings
// change.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/syscmd"
)

// DefaultName is the unit that renders the stock screen.
const DefaultName = "stock-screen.service"

// Restarter restarts one named service through systemctl.
type Restarter struct {
	runner syscmd.Runner
	name   string
}

// NewRestarter creates a Restarter for the named unit.
func NewRestarter(runner syscmd.Runner, name string) *Restarter {
	if name == "" {
		name = DefaultName
	}
	return &Restarter{runner: runner, name: name}
}

// Name returns the unit name
func (r *Restarter) Name() string {
	return r.name
}

// Restart runs "systemctl restart <name>". The returned error text is
// systemctl's own output when it printed any.
func (r *Restarter) Restart(ctx context.Context) error {
	_, err := r.runner.Run(ctx, syscmd.New("systemctl", "restart", r.name))
	if err != nil {
		logging.Error("Service restart failed",
			zap.String("service", r.name),
			zap.Error(err),
		)
		return err
	}
	logging.Info("Service restarted", zap.String("service", r.name))
	return nil
}

// Reason returns the text reported for a failed restart.
func Reason(err error) string {
	var failure *syscmd.ToolFailureError
	if errors.As(err, &failure) && failure.Reason() != "" {
		return failure.Reason()
	}
	return err.Error()
}
