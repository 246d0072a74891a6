package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/discovery"
	"github.com/muurk/zerostock/internal/protocol"
)

// Message types for async operations
type snapshotMsg struct {
	snap *deviceconfig.Snapshot
	err  error
}

type applyCompleteMsg struct {
	status       string
	err          error
	verification *deviceconfig.VerificationResult
	duration     time.Duration
}

// FieldID identifies one editable row of the dashboard
type FieldID int

const (
	FieldTicker FieldID = iota
	FieldRefresh
	FieldRange
	FieldAPIURL
	FieldMode
	FieldSSID
	FieldPSK
	FieldRestart
)

type fieldSpec struct {
	id    FieldID
	label string
	unit  string
}

// dashboardFields is the navigation order
var dashboardFields = []fieldSpec{
	{FieldTicker, "Ticker", ""},
	{FieldRefresh, "Refresh interval", " min"},
	{FieldRange, "Data range", " days"},
	{FieldAPIURL, "Data API", ""},
	{FieldMode, "Display mode", ""},
	{FieldSSID, "Network (SSID)", ""},
	{FieldPSK, "Passphrase", ""},
	{FieldRestart, "Restart display", ""},
}

// dashboardKeyMap defines key bindings for the dashboard screen
type dashboardKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Edit    key.Binding
	Apply   key.Binding
	Discard key.Binding
	Refresh key.Binding
	Back    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.Apply, k.Discard, k.Refresh, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit},
		{k.Apply, k.Discard, k.Refresh},
		{k.Back, k.Quit},
	}
}

// DashboardModel shows a display's settings and edits them in place.
// Edits are kept as raw text in Pending until they are applied together
// as one write request.
type DashboardModel struct {
	Device *discovery.Device
	Client *deviceconfig.Client

	Snapshot *deviceconfig.Snapshot
	Loading  bool
	LoadErr  error

	Pending map[FieldID]string
	Restart bool

	Cursor   int
	Editing  bool
	Input    textinput.Model
	InputErr error

	ConfirmingWiFi bool
	Applying       bool
	LastStatus     string
	ApplyErr       error
	Verification   *deviceconfig.VerificationResult
	ApplyDuration  time.Duration

	backRequested bool

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    dashboardKeyMap
	Editkey simpleKeyMap
	WiFiKey simpleKeyMap
}

// NewDashboardModel creates a dashboard for device. The snapshot is
// fetched by Init.
func NewDashboardModel(device *discovery.Device, client *deviceconfig.Client) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.CharLimit = 512
	input.Width = 40

	return DashboardModel{
		Device:  device,
		Client:  client,
		Loading: true,
		Pending: make(map[FieldID]string),
		Input:   input,
		Spinner: s,
		Help:    help.New(),
		Keys: dashboardKeyMap{
			Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Edit:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "edit")),
			Apply:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply")),
			Discard: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo edits")),
			Refresh: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "refresh")),
			Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		Editkey: simpleKeyMap{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "keep")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
		WiFiKey: simpleKeyMap{
			key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "apply")),
			key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		},
	}
}

// Init fetches the current snapshot
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(fetchSnapshotCmd(m.Client, false), m.Spinner.Tick)
}

func fetchSnapshotCmd(client *deviceconfig.Client, fresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var (
			snap *deviceconfig.Snapshot
			err  error
		)
		if fresh {
			snap, err = client.RefreshSnapshot(ctx)
		} else {
			snap, err = client.GetSnapshot(ctx)
		}
		return snapshotMsg{snap: snap, err: err}
	}
}

// IsBackRequested reports whether the user asked to leave the dashboard
func (m DashboardModel) IsBackRequested() bool {
	return m.backRequested
}

// Busy reports whether a request is in flight or a field is being edited,
// when global keys must not act.
func (m DashboardModel) Busy() bool {
	return m.Editing || m.Applying || m.ConfirmingWiFi
}

// Update handles messages and updates the model
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case snapshotMsg:
		m.Loading = false
		m.LoadErr = msg.err
		if msg.err == nil {
			m.Snapshot = msg.snap
		}
		return m, nil

	case applyCompleteMsg:
		m.Applying = false
		m.LastStatus = msg.status
		m.ApplyErr = msg.err
		m.Verification = msg.verification
		m.ApplyDuration = msg.duration
		if msg.err == nil {
			m.Pending = make(map[FieldID]string)
			m.Restart = false
			if msg.verification != nil && msg.verification.Actual != nil {
				m.Snapshot = msg.verification.Actual
				return m, nil
			}
			m.Loading = true
			return m, tea.Batch(fetchSnapshotCmd(m.Client, true), m.Spinner.Tick)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Loading && !m.Applying {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case m.Editing:
			return m.updateEditor(msg)
		case m.ConfirmingWiFi:
			return m.updateWiFiConfirm(msg)
		case m.Applying:
			return m, nil
		}
		return m.updateNormalMode(msg)
	}

	if m.Editing {
		var cmd tea.Cmd
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateNormalMode handles navigation when no field is being edited
func (m DashboardModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j", "tab":
		if m.Cursor < len(dashboardFields)-1 {
			m.Cursor++
		}
	case "enter", " ":
		return m.startEditing()
	case "u":
		m.Pending = make(map[FieldID]string)
		m.Restart = false
		m.ApplyErr = nil
	case "f":
		if !m.Loading {
			m.Loading = true
			return m, tea.Batch(fetchSnapshotCmd(m.Client, true), m.Spinner.Tick)
		}
	case "a":
		return m.requestApply()
	case "esc":
		m.backRequested = true
	}
	return m, nil
}

// startEditing opens the field under the cursor. Mode and restart toggle
// in place; the rest open a text input.
func (m DashboardModel) startEditing() (tea.Model, tea.Cmd) {
	field := dashboardFields[m.Cursor]

	switch field.id {
	case FieldRestart:
		m.Restart = !m.Restart
		return m, nil
	case FieldMode:
		next := deviceconfig.ModeLine
		if strings.EqualFold(m.value(FieldMode), deviceconfig.ModeLine) {
			next = deviceconfig.ModeCandle
		}
		m.setPending(FieldMode, next)
		return m, nil
	}

	m.Editing = true
	m.InputErr = nil
	m.Input.EchoMode = textinput.EchoNormal
	m.Input.Placeholder = ""
	if field.id == FieldPSK {
		m.Input.EchoMode = textinput.EchoPassword
		m.Input.Placeholder = "8-63 characters"
	}
	if v, ok := m.Pending[field.id]; ok {
		m.Input.SetValue(v)
	} else if field.id == FieldPSK {
		m.Input.SetValue("")
	} else {
		m.Input.SetValue(m.current(field.id))
	}
	m.Input.CursorEnd()
	return m, m.Input.Focus()
}

// updateEditor handles input while a field's text input is open
func (m DashboardModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Editing = false
		m.InputErr = nil
		m.Input.Blur()
		return m, nil

	case "enter":
		id := dashboardFields[m.Cursor].id
		value := strings.TrimSpace(m.Input.Value())
		if id == FieldPSK {
			value = m.Input.Value()
		}
		if err := checkField(id, value); err != nil {
			m.InputErr = err
			return m, nil
		}
		m.setPending(id, value)
		m.Editing = false
		m.Input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// checkField runs the same checks the daemon applies to one field
func checkField(id FieldID, value string) error {
	b := deviceconfig.NewRequestBuilder()
	switch id {
	case FieldTicker:
		b.SetTicker(value)
	case FieldAPIURL:
		b.SetDataAPIBaseURL(value)
	case FieldRefresh:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be int", deviceconfig.KeyRefreshInterval)
		}
		b.SetRefreshInterval(n)
	case FieldRange:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be number", deviceconfig.KeyDataRange)
		}
		b.SetDataRangeDays(f)
	case FieldSSID:
		if value == "" {
			return fmt.Errorf("wifi ssid cannot be empty")
		}
		return nil
	case FieldPSK:
		if value == "" {
			return fmt.Errorf("wifi psk cannot be empty")
		}
		return nil
	default:
		return nil
	}
	_, _, err := b.Build()
	if err != nil {
		return fmt.Errorf("%s", deviceconfig.StatusMessage(err))
	}
	return nil
}

// setPending records an edit, or drops it when it matches the display
func (m *DashboardModel) setPending(id FieldID, value string) {
	if id != FieldPSK && value == m.current(id) {
		delete(m.Pending, id)
		return
	}
	m.Pending[id] = value
}

// current returns the display's value of a field as text
func (m DashboardModel) current(id FieldID) string {
	s := m.Snapshot
	if s == nil {
		return ""
	}
	switch id {
	case FieldTicker:
		if s.Base != nil && s.Base.Ticker != nil {
			return *s.Base.Ticker
		}
	case FieldAPIURL:
		if s.Base != nil && s.Base.DataAPIBaseURL != nil {
			return *s.Base.DataAPIBaseURL
		}
	case FieldRefresh:
		if s.Base != nil && s.Base.RefreshIntervalMinutes != nil {
			return fmt.Sprint(s.Base.RefreshIntervalMinutes)
		}
	case FieldRange:
		if s.Base != nil && s.Base.DataRangeDays != nil {
			return fmt.Sprint(s.Base.DataRangeDays)
		}
	case FieldMode:
		if s.Display != nil && s.Display.Mode != nil {
			return *s.Display.Mode
		}
	case FieldSSID:
		if s.WiFi != nil {
			return s.WiFi.SSID
		}
	}
	return ""
}

// value returns the pending edit of a field, else the display's value
func (m DashboardModel) value(id FieldID) string {
	if v, ok := m.Pending[id]; ok {
		return v
	}
	return m.current(id)
}

// HasChanges reports whether applying would send anything
func (m DashboardModel) HasChanges() bool {
	return len(m.Pending) > 0 || m.Restart
}

// BuildRequest turns the pending edits into a validated write request.
// A new network needs both SSID and passphrase.
func (m DashboardModel) BuildRequest() (map[string]any, *deviceconfig.Request, error) {
	b := deviceconfig.NewRequestBuilder()
	if v, ok := m.Pending[FieldTicker]; ok {
		b.SetTicker(v)
	}
	if v, ok := m.Pending[FieldAPIURL]; ok {
		b.SetDataAPIBaseURL(v)
	}
	if v, ok := m.Pending[FieldRefresh]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%s must be int", deviceconfig.KeyRefreshInterval)
		}
		b.SetRefreshInterval(n)
	}
	if v, ok := m.Pending[FieldRange]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s must be number", deviceconfig.KeyDataRange)
		}
		b.SetDataRangeDays(f)
	}
	if v, ok := m.Pending[FieldMode]; ok {
		b.SetMode(v)
	}

	ssid, hasSSID := m.Pending[FieldSSID]
	psk, hasPSK := m.Pending[FieldPSK]
	if hasSSID || hasPSK {
		if !hasSSID {
			ssid = m.current(FieldSSID)
		}
		b.SetWiFi(ssid, psk)
	}
	if m.Restart {
		b.SetRestart(true)
	}

	payload, req, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%s", deviceconfig.StatusMessage(err))
	}
	return payload, req, nil
}

// requestApply validates the edits and either asks for confirmation of a
// network change or sends the request straight away.
func (m DashboardModel) requestApply() (tea.Model, tea.Cmd) {
	if !m.HasChanges() {
		return m, nil
	}
	_, req, err := m.BuildRequest()
	if err != nil {
		m.ApplyErr = err
		m.LastStatus = ""
		return m, nil
	}
	if req.WiFi != nil {
		m.ConfirmingWiFi = true
		return m, nil
	}
	return m.apply()
}

func (m DashboardModel) updateWiFiConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.ConfirmingWiFi = false
		return m.apply()
	case "n", "N", "esc":
		m.ConfirmingWiFi = false
	}
	return m, nil
}

func (m DashboardModel) apply() (tea.Model, tea.Cmd) {
	payload, req, err := m.BuildRequest()
	if err != nil {
		m.ApplyErr = err
		return m, nil
	}
	m.Applying = true
	m.ApplyErr = nil
	m.LastStatus = ""
	m.Verification = nil
	return m, tea.Batch(applyCmd(m.Client, payload, req), m.Spinner.Tick)
}

// applyCmd sends the request and reads the settings back. The wireless
// state is not verified because the link may still be changing.
func applyCmd(client *deviceconfig.Client, payload map[string]any, req *deviceconfig.Request) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx := context.Background()

		status, err := client.Apply(ctx, payload)
		if err != nil {
			return applyCompleteMsg{err: fmt.Errorf("request failed: %w", err), duration: time.Since(start)}
		}
		if protocol.IsError(status) {
			return applyCompleteMsg{status: status, err: fmt.Errorf("%s", protocol.ErrorReason(status)), duration: time.Since(start)}
		}
		if req.Updates.Empty() {
			return applyCompleteMsg{status: status, duration: time.Since(start)}
		}

		result := client.VerifyApplied(ctx, req.Updates, deviceconfig.DefaultVerificationOptions())
		if !result.Success {
			return applyCompleteMsg{status: status, err: result.Error, verification: result, duration: time.Since(start)}
		}
		return applyCompleteMsg{status: status, verification: result, duration: time.Since(start)}
	}
}

// View renders the dashboard
func (m DashboardModel) View() string {
	var helpText string
	switch {
	case m.Editing:
		helpText = m.Help.View(m.Editkey)
	case m.ConfirmingWiFi:
		helpText = m.Help.View(m.WiFiKey)
	default:
		helpText = m.Help.View(m.Keys)
	}
	return RenderApplicationContainer(m.renderContent(), helpText, m.Width, m.Height)
}

func (m DashboardModel) renderContent() string {
	var b strings.Builder

	name := "display"
	if m.Device != nil {
		name = fmt.Sprintf("%s (%s)", m.Device.Instance, m.Device.Address())
	}
	b.WriteString(RenderTitle("Settings of " + name))
	b.WriteString("\n")

	switch {
	case m.Loading && m.Snapshot == nil:
		b.WriteString(fmt.Sprintf("  %s Reading settings...\n", m.Spinner.View()))
		return b.String()
	case m.LoadErr != nil && m.Snapshot == nil:
		b.WriteString(RenderError(fmt.Sprintf("Could not read settings: %v", m.LoadErr)))
		b.WriteString("\n\n  Press 'f' to retry or esc to pick another display.\n")
		return b.String()
	}

	sections := map[FieldID]string{
		FieldTicker:  "Chart",
		FieldSSID:    "Wireless",
		FieldRestart: "Service",
	}
	for i, f := range dashboardFields {
		if title, ok := sections[f.id]; ok {
			b.WriteString(SectionStyle.Render(title))
			b.WriteString("\n")
		}
		b.WriteString(m.renderField(i, f))
		b.WriteString("\n")
		if m.Editing && i == m.Cursor {
			b.WriteString("      ")
			b.WriteString(m.Input.View())
			b.WriteString("\n")
			if m.InputErr != nil {
				b.WriteString(lipgloss.NewStyle().Foreground(ErrorColor).Render("      " + m.InputErr.Error()))
				b.WriteString("\n")
			}
		}
	}
	b.WriteString("\n")

	if s := m.Snapshot; s != nil && s.WiFi != nil && s.WiFi.Status != "" {
		b.WriteString(RenderSubtitle("  Link: " + s.WiFi.Status))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusPanel())
	return b.String()
}

func (m DashboardModel) renderField(i int, f fieldSpec) string {
	var shown string
	switch f.id {
	case FieldRestart:
		shown = "no"
		if m.Restart {
			shown = "yes"
		}
	case FieldPSK:
		if v, ok := m.Pending[FieldPSK]; ok {
			shown = deviceconfig.MaskSecret(v)
		} else if m.Snapshot != nil && m.Snapshot.WiFi != nil {
			shown = deviceconfig.MaskSecret(m.Snapshot.WiFi.PSK)
		} else {
			shown = "-"
		}
	default:
		shown = deviceconfig.OrDash(m.value(f.id))
		if shown != "-" {
			shown += f.unit
		}
	}

	line := fmt.Sprintf("%-18s %s", f.label, shown)
	_, modified := m.Pending[f.id]
	if f.id == FieldRestart {
		modified = m.Restart
	}
	if modified {
		line += " " + ModifiedStyle.Render("(modified)")
	}
	return RenderMenuItem(line, i == m.Cursor && !m.ConfirmingWiFi)
}

func (m DashboardModel) renderStatusPanel() string {
	switch {
	case m.ConfirmingWiFi:
		ssid := m.value(FieldSSID)
		return WarningBoxStyle.Render(fmt.Sprintf(
			"⚠ The display will leave its current network and join %q.\n"+
				"If the passphrase is wrong it cannot be reached until it is\n"+
				"reconfigured locally. Apply? (y/n)", ssid))
	case m.Applying:
		return fmt.Sprintf("  %s Sending to the display...\n", m.Spinner.View())
	case m.ApplyErr != nil:
		text := fmt.Sprintf("Update failed: %v", m.ApplyErr)
		if m.LastStatus != "" && !protocol.IsError(m.LastStatus) {
			text = fmt.Sprintf("Applied (%s) but verification failed: %v", m.LastStatus, m.ApplyErr)
		}
		return RenderError(text)
	case m.LastStatus != "":
		text := fmt.Sprintf("Display answered %q in %s", m.LastStatus, m.ApplyDuration.Round(100*time.Millisecond))
		if m.Verification != nil {
			text += fmt.Sprintf("\nSettings verified after %d attempt(s)", m.Verification.Attempts)
		}
		return RenderSuccess(text)
	case m.HasChanges():
		return RenderSubtitle(fmt.Sprintf("  %d pending change(s), press 'a' to apply", len(m.Pending)+boolInt(m.Restart)))
	}
	return ""
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
