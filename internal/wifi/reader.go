package wifi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/syscmd"
)

const (
	toolNmcli   = "nmcli"
	toolIwgetid = "iwgetid"

	// StatusUnknown is reported when no tool can describe the link
	StatusUnknown = "Unknown"
)

// Reader resolves the current wireless state on a best-effort basis. Every
// field is resolved independently and never cached.
type Reader struct {
	runner syscmd.Runner
	opts   Options
}

// NewReader creates a Reader.
func NewReader(runner syscmd.Runner, opts Options) *Reader {
	return &Reader{runner: runner, opts: opts.withDefaults()}
}

// Read resolves SSID, PSK and status. Fields that do not resolve are left
// empty so they are omitted from the snapshot.
func (r *Reader) Read(ctx context.Context) deviceconfig.WiFiState {
	name, _ := r.ActiveConnection(ctx)
	ssid := r.ActiveSSID(ctx)
	state := deviceconfig.WiFiState{
		SSID:   ssid,
		PSK:    r.PSK(ctx, name, ssid),
		Status: r.Status(ctx),
	}

	logging.Debug("Resolved wifi state",
		zap.String("connection", name),
		zap.String("ssid", state.SSID),
		zap.Bool("psk_found", state.PSK != ""),
		zap.String("status", state.Status),
	)
	return state
}

// ActiveConnection returns the name and device of the first active
// NetworkManager wifi connection.
func (r *Reader) ActiveConnection(ctx context.Context) (name, device string) {
	res, err := r.runner.Run(ctx, syscmd.New(toolNmcli, "-t", "-f", "NAME,TYPE,DEVICE", "connection", "show", "--active"))
	if err != nil {
		return "", ""
	}
	for _, row := range syscmd.TerseRows(res.Stdout, 3) {
		if row[1] == "wifi" || row[1] == "802-11-wireless" {
			return row[0], row[2]
		}
	}
	return "", ""
}

// ActiveSSID returns the SSID of the associated network from nmcli, or from
// iwgetid when nmcli is missing or reports nothing.
func (r *Reader) ActiveSSID(ctx context.Context) string {
	chain := syscmd.Chain{
		Goal: "ssid",
		Strategies: []syscmd.Strategy{
			syscmd.StrategyFunc(toolNmcli, r.ssidFromNmcli),
			syscmd.StrategyFunc(toolIwgetid, r.ssidFromIwgetid),
		},
	}
	res, err := chain.Run(ctx)
	if err != nil {
		return ""
	}
	return res.Value
}

func (r *Reader) ssidFromNmcli(ctx context.Context) (string, error) {
	res, err := r.runner.Run(ctx, syscmd.New(toolNmcli, "-t", "-f", "ACTIVE,SSID", "dev", "wifi"))
	if err != nil {
		return "", err
	}
	for _, row := range syscmd.TerseRows(res.Stdout, 2) {
		if row[0] == "yes" {
			return strings.TrimSpace(row[1]), nil
		}
	}
	return "", syscmd.ErrEmptyResult
}

func (r *Reader) ssidFromIwgetid(ctx context.Context) (string, error) {
	res, err := r.runner.Run(ctx, syscmd.New(toolIwgetid, "-r"))
	if err != nil {
		return "", err
	}
	return res.Output(), nil
}

// PSK returns the stored passphrase for the connection from nmcli, or from
// the wpa_supplicant credential file by SSID.
func (r *Reader) PSK(ctx context.Context, connection, ssid string) string {
	var strategies []syscmd.Strategy
	if connection != "" {
		strategies = append(strategies, syscmd.StrategyFunc(toolNmcli, func(ctx context.Context) (string, error) {
			res, err := r.runner.Run(ctx, syscmd.New(toolNmcli, "-s", "-g", "802-11-wireless-security.psk", "connection", "show", connection))
			if err != nil {
				return "", err
			}
			return res.Output(), nil
		}))
	}
	if ssid != "" {
		strategies = append(strategies, syscmd.StrategyFunc("wpa_supplicant.conf", func(context.Context) (string, error) {
			return r.pskFromSupplicant(ssid)
		}))
	}

	res, err := syscmd.Chain{Goal: "psk", Strategies: strategies}.Run(ctx)
	if err != nil {
		return ""
	}
	return res.Value
}

func (r *Reader) pskFromSupplicant(ssid string) (string, error) {
	data, err := os.ReadFile(r.opts.SupplicantPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", syscmd.ErrEmptyResult
	}
	if err != nil {
		return "", err
	}
	psk, ok := FindPSK(string(data), ssid)
	if !ok {
		return "", syscmd.ErrEmptyResult
	}
	return psk, nil
}

// Status describes the link, preferring the in-use access point with its
// signal strength and falling back to the device state.
func (r *Reader) Status(ctx context.Context) string {
	if !syscmd.Available(r.runner, toolNmcli) {
		return StatusUnknown
	}
	chain := syscmd.Chain{
		Goal: "status",
		Strategies: []syscmd.Strategy{
			syscmd.StrategyFunc("nmcli-in-use", r.statusFromInUse),
			syscmd.StrategyFunc("nmcli-dev-status", r.statusFromDevice),
		},
	}
	res, err := chain.Run(ctx)
	if err != nil {
		return StatusUnknown
	}
	return res.Value
}

func (r *Reader) statusFromInUse(ctx context.Context) (string, error) {
	res, err := r.runner.Run(ctx, syscmd.New(toolNmcli, "-t", "-f", "IN-USE,SSID,SIGNAL", "dev", "wifi"))
	if err != nil {
		return "", err
	}
	for _, row := range syscmd.TerseRows(res.Stdout, 3) {
		if row[0] != "*" {
			continue
		}
		return connectedStatus(strings.TrimSpace(row[1]), strings.TrimSpace(row[2])), nil
	}
	return "", syscmd.ErrEmptyResult
}

func connectedStatus(ssid, signal string) string {
	if isDigits(signal) {
		if ssid != "" {
			return fmt.Sprintf("Connected to %s (signal %s%%)", ssid, signal)
		}
		return fmt.Sprintf("Connected (signal %s%%)", signal)
	}
	if ssid != "" {
		return "Connected to " + ssid
	}
	return "Connected"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func (r *Reader) statusFromDevice(ctx context.Context) (string, error) {
	res, err := r.runner.Run(ctx, syscmd.New(toolNmcli, "-t", "-f", "DEVICE,STATE,TYPE", "dev", "status"))
	if err != nil {
		return "", err
	}
	for _, row := range syscmd.TerseRows(res.Stdout, 3) {
		if row[2] == "wifi" {
			return deviceState(row[1]), nil
		}
	}
	return "", syscmd.ErrEmptyResult
}

// deviceState turns an nmcli device state into a readable status.
func deviceState(state string) string {
	switch state {
	case "connected":
		return "Connected"
	case "disconnected":
		return "Disconnected"
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(state, "-", " "))
}
