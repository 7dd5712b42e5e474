package dashboard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relaymon/relaymon/internal/ui"
)

// Key bindings for the dashboard.
const (
	KeyQuit       = "q"
	KeyQuitAlt    = "ctrl+c"
	KeyPause      = "p"
	KeyRefresh    = "r"
	KeyToggleHelp = "?"
	KeyClose      = "esc"
)

// helpBinding is one row of the help overlay.
type helpBinding struct {
	key  string
	desc string
}

var helpBindings = []helpBinding{
	{"q / ctrl+c", "quit"},
	{"p", "pause or resume sampling"},
	{"r", "refresh now"},
	{"↑ / ↓", "scroll the event log"},
	{"?", "toggle this help"},
}

// HandleKeyMsg processes a key press. It returns true when the key was
// handled; unhandled keys fall through to the event log viewport.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// The help overlay swallows every key except quit.
	if m.showHelp {
		switch key {
		case KeyQuitAlt:
			return true, m.quit()
		default:
			m.showHelp = false
		}
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		return true, m.quit()

	case KeyPause:
		if m.paused {
			m.cfg.Tracker.Resume()
		} else {
			m.cfg.Tracker.Pause()
		}
		m.refreshFromTracker()
		return true, nil

	case KeyRefresh:
		m.refreshFromTracker()
		var cmd tea.Cmd
		if !m.fetchingConns {
			m.fetchingConns = true
			cmd = m.fetchConnectionsCmd()
		}
		return true, cmd

	case KeyToggleHelp:
		m.showHelp = true
		return true, nil
	}

	return false, nil
}

// quit unsubscribes from tracker events and exits the program.
func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	return tea.Quit
}

// renderHelpOverlay renders the key reference centered in the terminal.
func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("relaymon keys"))
	b.WriteString("\n\n")
	for _, hb := range helpBindings {
		b.WriteString(labelStyle.Render(ui.PadRight(hb.key, 12)))
		b.WriteString(valueStyle.Render(hb.desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("press any key to close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorBorder).
		Padding(1, 3).
		Render(b.String())

	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
