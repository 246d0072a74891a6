package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/discovery"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenDashboard Screen = "dashboard"
)

// Options wires the wizard to discovery and the daemon client
type Options struct {
	// Scan runs one discovery scan
	Scan ScanFunc

	// ScanTimeout drives the discovery progress bar
	ScanTimeout time.Duration

	// Device, when set, skips discovery
	Device *discovery.Device

	// NewClient builds a client for a selected device
	NewClient func(*discovery.Device) *deviceconfig.Client

	// OnSelect is called when a device is opened, e.g. to remember it
	OnSelect func(*discovery.Device)
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen

	DiscoveryModel DiscoveryModel
	DashboardModel DashboardModel

	SelectedDevice *discovery.Device

	opts Options

	Width  int
	Height int
}

// NewAppModel creates the wizard. It opens the dashboard directly when
// opts.Device is set, and starts with discovery otherwise.
func NewAppModel(opts Options) AppModel {
	if opts.NewClient == nil {
		opts.NewClient = func(d *discovery.Device) *deviceconfig.Client {
			return deviceconfig.NewClient(d.ConfigURL(), d.WebSocketURL())
		}
	}

	m := AppModel{opts: opts}
	if opts.Device != nil {
		m.CurrentScreen = ScreenDashboard
		m.SelectedDevice = opts.Device
		m.DashboardModel = NewDashboardModel(opts.Device, opts.NewClient(opts.Device))
		return m
	}
	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(opts.Scan, opts.ScanTimeout)
	return m
}

// Init initializes the current screen
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	case ScreenDashboard:
		return m.DashboardModel.Init()
	default:
		return nil
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DashboardModel.Width = msg.Width
		m.DashboardModel.Height = msg.Height
		if m.CurrentScreen != ScreenDiscovery {
			return m, nil
		}
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && m.canQuitDiscovery() {
			if s := keyMsg.String(); s == "q" || s == "esc" {
				return m, tea.Quit
			}
		}

		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)

		if device := m.DiscoveryModel.GetSelectedDevice(); device != nil {
			return m.openDashboard(device)
		}
		return m, cmd

	case ScreenDashboard:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "q" && !m.DashboardModel.Busy() {
			return m, tea.Quit
		}

		updated, cmd := m.DashboardModel.Update(msg)
		m.DashboardModel = updated.(DashboardModel)

		if m.DashboardModel.IsBackRequested() {
			return m.openDiscovery()
		}
		return m, cmd
	}

	return m, nil
}

func (m AppModel) canQuitDiscovery() bool {
	d := m.DiscoveryModel
	return !d.ManualMode && d.DeviceList.FilterState() == list.Unfiltered
}

func (m AppModel) openDashboard(device *discovery.Device) (tea.Model, tea.Cmd) {
	m.SelectedDevice = device
	if m.opts.OnSelect != nil {
		m.opts.OnSelect(device)
	}

	m.CurrentScreen = ScreenDashboard
	m.DashboardModel = NewDashboardModel(device, m.opts.NewClient(device))
	m.DashboardModel.Width = m.Width
	m.DashboardModel.Height = m.Height
	return m, m.DashboardModel.Init()
}

func (m AppModel) openDiscovery() (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(m.opts.Scan, m.opts.ScanTimeout)
	if m.Width > 0 {
		updated, _ := m.DiscoveryModel.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height})
		m.DiscoveryModel = updated.(DiscoveryModel)
	}
	return m, m.DiscoveryModel.Init()
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenDashboard:
		return m.DashboardModel.View()
	default:
		return "Unknown screen"
	}
}
