package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WaitFunc blocks until the daemon replies with a status.
type WaitFunc func(ctx context.Context) (string, error)

type statusMsg struct {
	status string
	err    error
}

// waitModel shows a spinner until the wait function returns.
type waitModel struct {
	ctx     context.Context
	cancel  context.CancelFunc
	label   string
	wait    WaitFunc
	spinner spinner.Model
	result  *statusMsg
}

func newWaitModel(ctx context.Context, label string, wait WaitFunc) waitModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)
	return waitModel{ctx: ctx, cancel: cancel, label: label, wait: wait, spinner: s}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		status, err := m.wait(m.ctx)
		return statusMsg{status: status, err: err}
	})
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.result = &msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.cancel()
			m.result = &statusMsg{err: context.Canceled}
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.result != nil {
		return ""
	}
	return fmt.Sprintf("  %s %s\n", m.spinner.View(), ProgressLabelStyle.UnsetPaddingLeft().Render(m.label))
}

// WaitForStatus runs wait behind a spinner and returns its status. Without
// a terminal it simply calls wait.
func WaitForStatus(ctx context.Context, out io.Writer, label string, wait WaitFunc) (string, error) {
	if out == nil {
		out = os.Stdout
	}
	if f, ok := out.(*os.File); !ok || f != os.Stdout || !IsInteractive() {
		return wait(ctx)
	}

	model := newWaitModel(ctx, label, wait)
	defer model.cancel()

	final, err := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", fmt.Errorf("spinner failed: %w", err)
	}
	res := final.(waitModel).result
	if res == nil {
		return "", context.Canceled
	}
	return res.status, res.err
}
