package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/zerostock/internal/discovery"
)

// ScanFunc performs one discovery scan
type ScanFunc func(ctx context.Context) ([]*discovery.Device, error)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// simpleKeyMap is a flat binding list for the scanning, empty and manual states
type simpleKeyMap []key.Binding

func (k simpleKeyMap) ShortHelp() []key.Binding  { return k }
func (k simpleKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k} }

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.Instance + " " + d.device.IP + " " + d.device.Hostname
}

func (d deviceItem) Title() string { return d.device.Instance }

func (d deviceItem) Description() string { return d.device.Address() }

// deviceDelegate renders each daemon as a bordered card
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 7 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}
	device := it.device
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + device.Instance))
	} else {
		content.WriteString("  " + device.Instance)
	}
	content.WriteString("\n\n")

	ver := device.GetMetadata(discovery.TxtVersion)
	if ver == "" {
		ver = "unknown"
	}
	fmt.Fprintf(&content, "  Host:    %s\n", strings.TrimSuffix(device.Hostname, "."))
	fmt.Fprintf(&content, "  Address: %s\n", device.Address())
	fmt.Fprintf(&content, "  Version: %s", ver)
	if device.GetMetadata(discovery.TxtTLS) == "1" {
		content.WriteString("  (TLS)")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(cardWidth(d.width))
	if selected {
		style = style.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, style.Render(content.String()))
}

// DiscoveryModel represents the device discovery screen state
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Selected   bool
	Err        error

	// Manual address entry
	ManualMode bool
	AddrInput  textinput.Model
	InputErr   error

	Scan        ScanFunc
	ScanTimeout time.Duration

	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    simpleKeyMap
	ScanningKeys  simpleKeyMap
	EmptyKeys     simpleKeyMap
}

// NewDiscoveryModel creates a discovery screen that runs scan on start.
// timeout only drives the progress bar.
func NewDiscoveryModel(scan ScanFunc, timeout time.Duration) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	addrInput := textinput.New()
	addrInput.Placeholder = "zerostock.local:8080"
	addrInput.CharLimit = 255
	addrInput.Width = 40

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Discovered Displays"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.SetShowHelp(false)
	deviceList.Styles.Title = TitleStyle

	manual := key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter address"))
	quit := key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit"))
	rescan := key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan"))

	return DiscoveryModel{
		DeviceList:  deviceList,
		AddrInput:   addrInput,
		Scan:        scan,
		ScanTimeout: timeout,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "configure")),
			Rescan: rescan,
			Manual: manual,
			Quit:   quit,
		},
		ManualKeys: simpleKeyMap{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
		ScanningKeys: simpleKeyMap{manual, quit},
		EmptyKeys:    simpleKeyMap{rescan, manual, quit},
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	scan := m.Scan
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		func() tea.Msg {
			if scan == nil {
				return scanCompleteMsg{}
			}
			devices, err := scan(context.Background())
			return scanCompleteMsg{devices: devices, err: err}
		},
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		if m.DeviceList.FilterState() == list.Filtering {
			m.DeviceList, cmd = m.DeviceList.Update(msg)
			return m, cmd
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 10)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		// Manually entered displays survive a rescan
		items := m.manualItems()
		for _, dev := range msg.devices {
			items = append(items, deviceItem{device: dev})
		}
		m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.ManualMode && !m.Scanning {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}
	return m, cmd
}

func (m DiscoveryModel) manualItems() []list.Item {
	var items []list.Item
	for _, it := range m.DeviceList.Items() {
		if d, ok := it.(deviceItem); ok && d.device.Instance == manualInstance {
			items = append(items, d)
		}
	}
	return items
}

// updateNormalMode handles keyboard input in the device list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "enter", " ":
		if !m.Scanning && m.DeviceList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case "r":
		if m.Scanning {
			return m, nil
		}
		m.Err = nil
		return m, m.startScan()

	case "m":
		m.ManualMode = true
		m.InputErr = nil
		m.AddrInput.SetValue("")
		return m, m.AddrInput.Focus()
	}

	if !m.Scanning {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}
	return m, cmd
}

// updateManualMode handles keyboard input while an address is typed
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "esc":
		m.ManualMode = false
		m.AddrInput.SetValue("")
		m.AddrInput.Blur()
		return m, nil

	case "enter":
		device, err := ParseManualAddress(m.AddrInput.Value())
		if err != nil {
			m.InputErr = err
			return m, nil
		}
		items := append([]list.Item{deviceItem{device: device}}, m.DeviceList.Items()...)
		m.DeviceList.SetItems(items)
		m.DeviceList.Select(0)
		m.ManualMode = false
		m.InputErr = nil
		m.AddrInput.SetValue("")
		m.AddrInput.Blur()
		return m, nil
	}

	m.AddrInput, cmd = m.AddrInput.Update(msg)
	return m, cmd
}

const manualInstance = "Manual entry"

// ParseManualAddress turns "host" or "host:port" into a device. The port
// defaults to discovery.DefaultPort.
func ParseManualAddress(s string) (*discovery.Device, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("address is empty")
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// No port given
		host = strings.Trim(s, "[]")
		portStr = strconv.Itoa(discovery.DefaultPort)
	}
	if host == "" || strings.ContainsAny(host, " /") {
		return nil, fmt.Errorf("invalid host: %q", host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %q", portStr)
	}

	return &discovery.Device{
		Instance:     manualInstance,
		Hostname:     host,
		IP:           host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning(width)
		helpText = m.Help.View(m.ScanningKeys)
	case len(m.DeviceList.Items()) > 0:
		content = m.renderDeviceResults()
		helpText = m.Help.View(m.Keys)
	default:
		content = m.renderDeviceResults()
		helpText = m.Help.View(m.EmptyKeys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered progress display. The bar tracks the
// elapsed share of the scan timeout.
func (m DiscoveryModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)
	frac := 1.0
	if m.ScanTimeout > 0 {
		frac = min(1.0, elapsed.Seconds()/m.ScanTimeout.Seconds())
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(fmt.Sprintf("%s SEARCHING FOR DISPLAYS", m.Spinner.View())),
		SubtitleStyle.Render("Looking for zerostock-cfgd on your network..."),
		"",
		m.ProgressBar.ViewAs(frac),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)
	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderDeviceResults renders the device list or a troubleshooting note
func (m DiscoveryModel) renderDeviceResults() string {
	var b strings.Builder
	b.WriteString("\n")

	if len(m.DeviceList.Items()) > 0 {
		if m.Err != nil {
			b.WriteString(RenderSubtitle(fmt.Sprintf("  Scan failed: %v", m.Err)))
			b.WriteString("\n")
		}
		b.WriteString(m.DeviceList.View())
		return b.String()
	}

	if m.Err != nil {
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
	} else {
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(WarningColor).Bold(true).
			Render("⚠ No displays found on your network"))
	}
	b.WriteString("\n\n")
	b.WriteString("  Troubleshooting:\n")
	b.WriteString("    • Ensure the display is powered on and zerostock-cfgd is running\n")
	b.WriteString("    • Verify your computer is on the same network\n")
	b.WriteString("    • Press 'm' to enter the display's address\n")
	return b.String()
}

// renderManualEntry renders the manual address dialog
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("  Enter the display's host or host:port"))
	b.WriteString("\n\n  Address: ")
	b.WriteString(m.AddrInput.View())
	b.WriteString("\n")
	if m.InputErr != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(ErrorColor).Render("  " + m.InputErr.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// GetSelectedDevice returns the selected device (if any)
func (m DiscoveryModel) GetSelectedDevice() *discovery.Device {
	if !m.Selected {
		return nil
	}
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}
