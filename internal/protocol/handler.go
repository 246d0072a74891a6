package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/cfgfile"
	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/service"
	"github.com/muurk/zerostock/internal/wifi"
)

// SettingsStore reads and patches the settings file.
type SettingsStore interface {
	Read() (deviceconfig.Snapshot, error)
	Apply(updates *deviceconfig.UpdateSet) (*cfgfile.WriteResult, error)
}

// WiFiReader resolves the current wireless state.
type WiFiReader interface {
	Read(ctx context.Context) deviceconfig.WiFiState
}

// WiFiProvisioner joins a wireless network.
type WiFiProvisioner interface {
	Provision(ctx context.Context, creds deviceconfig.WiFiCredentials) (string, error)
}

// ServiceRestarter restarts the display service.
type ServiceRestarter interface {
	Restart(ctx context.Context) error
}

// Handler turns raw request bytes into one status reply and serves read
// snapshots. Requests are processed one at a time.
type Handler struct {
	mu          sync.Mutex
	settings    SettingsStore
	reader      WiFiReader
	provisioner WiFiProvisioner
	restarter   ServiceRestarter
}

// NewHandler creates a Handler.
func NewHandler(settings SettingsStore, reader WiFiReader, provisioner WiFiProvisioner, restarter ServiceRestarter) *Handler {
	return &Handler{
		settings:    settings,
		reader:      reader,
		provisioner: provisioner,
		restarter:   restarter,
	}
}

// Decode parses a write request into a JSON object. Numbers are kept as
// json.Number so integers and floats can be told apart.
func Decode(data []byte) (map[string]any, string) {
	if !utf8.Valid(data) {
		return nil, fmt.Sprintf("invalid json (%s)", "invalid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Sprintf("invalid json (%s)", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, "invalid json (extra data after value)"
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, "payload must be a JSON object"
	}
	return obj, ""
}

// HandleWrite processes one write request and returns "ok" or
// "error: <reason>". Everything is validated before anything is changed.
// The settings write, wifi provisioning and service restart then run in
// that order; the first failure is reported and earlier steps are not
// undone.
func (h *Handler) HandleWrite(ctx context.Context, data []byte) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, reason := Decode(data)
	if reason != "" {
		return h.fail("decode", reason)
	}

	req, err := deviceconfig.ValidateRequest(payload)
	if err != nil {
		return h.fail("validate", deviceconfig.StatusMessage(err))
	}

	if !req.Updates.Empty() {
		if _, err := h.settings.Apply(req.Updates); err != nil {
			return h.fail("settings", fmt.Sprintf("failed to update config (%s)", deviceconfig.StatusMessage(err)))
		}
	}

	if req.WiFi != nil {
		if _, err := h.provisioner.Provision(ctx, *req.WiFi); err != nil {
			return h.fail("wifi", fmt.Sprintf("wifi provisioning failed (%s)", err))
		}
	}

	if req.Restart {
		if err := h.restarter.Restart(ctx); err != nil {
			return h.fail("restart", fmt.Sprintf("restart failed (%s)", service.Reason(err)))
		}
	}

	logging.Info("Write request applied",
		zap.Int("keys", req.Updates.Len()),
		zap.Bool("wifi", req.WiFi != nil),
		zap.Bool("restart", req.Restart),
	)
	return StatusOK
}

func (h *Handler) fail(step, reason string) string {
	logging.Warn("Write request failed",
		zap.String("step", step),
		zap.String("reason", reason),
	)
	return ErrorStatus(reason)
}

// Snapshot combines the settings file and the wireless state.
func (h *Handler) Snapshot(ctx context.Context) deviceconfig.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.settings.Read()
	if err != nil {
		logging.Warn("Failed to read settings file", zap.Error(err))
		snap = deviceconfig.Snapshot{}
	}
	if state := h.reader.Read(ctx); !state.IsEmpty() {
		snap.WiFi = &state
	}
	return snap
}

// EncodeSnapshot renders a snapshot as compact UTF-8 JSON without HTML
// escaping.
func EncodeSnapshot(snap deviceconfig.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// HandleRead returns the encoded snapshot starting at byte offset, so a
// client limited to small reads can fetch it in chunks. An offset past the
// end yields an empty slice.
func (h *Handler) HandleRead(ctx context.Context, offset int) []byte {
	data, err := EncodeSnapshot(h.Snapshot(ctx))
	if err != nil {
		logging.Error("Failed to encode snapshot", zap.Error(err))
		return []byte("{}")
	}
	if offset <= 0 {
		return data
	}
	if offset >= len(data) {
		return []byte{}
	}
	return data[offset:]
}

var (
	_ SettingsStore    = (*cfgfile.Patcher)(nil)
	_ WiFiReader       = (*wifi.Reader)(nil)
	_ WiFiProvisioner  = (*wifi.Provisioner)(nil)
	_ ServiceRestarter = (*service.Restarter)(nil)
)
