package wifi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/cfgfile"
	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/syscmd"
)

const (
	toolWpaPassphrase = "wpa_passphrase"
	toolWpaCli        = "wpa_cli"

	// supplicantFileMode is used when the credential file does not exist yet
	supplicantFileMode os.FileMode = 0o600
)

// ProvisionError carries the reason reported to the caller when joining a
// network fails.
type ProvisionError struct {
	Reason string
	Err    error
}

func (e *ProvisionError) Error() string {
	return e.Reason
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// reasonFor returns the tool's own message, or fallback when it printed
// nothing.
func reasonFor(err error, fallback string) *ProvisionError {
	var failure *syscmd.ToolFailureError
	if errors.As(err, &failure) {
		if r := failure.Reason(); r != "" {
			return &ProvisionError{Reason: r, Err: err}
		}
		return &ProvisionError{Reason: fallback, Err: err}
	}
	return &ProvisionError{Reason: err.Error(), Err: err}
}

// Provisioner joins a wireless network. NetworkManager is used when nmcli
// is installed; only when it is missing entirely is wpa_supplicant.conf
// rewritten and wpa_supplicant told to reload.
type Provisioner struct {
	runner syscmd.Runner
	opts   Options
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(runner syscmd.Runner, opts Options) *Provisioner {
	return &Provisioner{runner: runner, opts: opts.withDefaults()}
}

// Provision connects to creds.SSID. On success it returns a short
// description of what was done ("connected" or "reconfigured"). Failures
// are *ProvisionError values.
func (p *Provisioner) Provision(ctx context.Context, creds deviceconfig.WiFiCredentials) (string, error) {
	chain := syscmd.Chain{
		Goal: "wifi provisioning",
		Strategies: []syscmd.Strategy{
			syscmd.StrategyFunc(toolNmcli, func(ctx context.Context) (string, error) {
				return p.connectNmcli(ctx, creds)
			}),
			syscmd.StrategyFunc("wpa_supplicant", func(ctx context.Context) (string, error) {
				return p.rewriteSupplicant(ctx, creds)
			}),
		},
		Advance: syscmd.IsToolUnavailable,
	}

	res, err := chain.Run(ctx)
	if err != nil {
		var exhausted *syscmd.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.Last() != nil {
			err = exhausted.Last()
		}
		var perr *ProvisionError
		if !errors.As(err, &perr) {
			perr = &ProvisionError{Reason: err.Error(), Err: err}
		}
		logging.Error("WiFi provisioning failed",
			zap.String("ssid", creds.SSID),
			zap.String("reason", perr.Reason),
		)
		return "", perr
	}

	logging.Info("WiFi provisioned",
		zap.String("ssid", creds.SSID),
		zap.String("method", res.Strategy),
		zap.String("result", res.Value),
	)
	return res.Value, nil
}

func (p *Provisioner) connectNmcli(ctx context.Context, creds deviceconfig.WiFiCredentials) (string, error) {
	cmd := syscmd.New(toolNmcli, "dev", "wifi", "connect", creds.SSID, "password", creds.PSK, "ifname", p.opts.Interface).
		WithSecret(5)
	if _, err := p.runner.Run(ctx, cmd); err != nil {
		if syscmd.IsToolUnavailable(err) {
			return "", err
		}
		return "", reasonFor(err, "nmcli failed")
	}
	return "connected", nil
}

func (p *Provisioner) rewriteSupplicant(ctx context.Context, creds deviceconfig.WiFiCredentials) (string, error) {
	if !syscmd.Available(p.runner, toolWpaPassphrase) {
		return "", &syscmd.ToolUnavailableError{Tool: toolWpaPassphrase, Message: "wpa_passphrase not available"}
	}

	res, err := p.runner.Run(ctx, syscmd.New(toolWpaPassphrase, creds.SSID, creds.PSK).WithSecret(1))
	if err != nil {
		return "", reasonFor(err, "wpa_passphrase failed")
	}

	path := p.opts.SupplicantPath
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", &ProvisionError{Reason: fmt.Sprintf("failed to read %s: %v", path, err), Err: err}
	}

	content := ReplaceNetwork(string(existing), creds.SSID, res.Output())
	outcomes, err := cfgfile.WriteFileAtomic(path, []byte(content), supplicantFileMode)
	if err != nil {
		return "", &ProvisionError{Reason: deviceconfig.StatusMessage(err), Err: err}
	}
	for _, o := range outcomes {
		o.Log()
	}

	if _, err := p.runner.Run(ctx, syscmd.New(toolWpaCli, "-i", p.opts.Interface, "reconfigure")); err != nil {
		return "", reasonFor(err, "wpa_cli reconfigure failed")
	}
	return "reconfigured", nil
}
