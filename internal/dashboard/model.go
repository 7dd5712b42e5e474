package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
)

// Width breakpoints for layout adjustments.
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
)

// Height breakpoints for layout adjustments.
const (
	HeightMinimal  = 24
	HeightStandard = 40
)

const (
	// historyWindow is how much sample history feeds the sparklines.
	historyWindow = 10 * time.Minute

	// maxEvents bounds the retained event log.
	maxEvents = 100

	// connFetchTimeout bounds one on-demand connection lookup.
	connFetchTimeout = 10 * time.Second
)

// Config wires the dashboard to a running tracker.
type Config struct {
	Tracker *tracker.Tracker
	Ports   *tracker.PortUsage

	Target       string        // display name for the monitored daemon, e.g. "relayd"
	PID          int           // resolved pid of the daemon
	Version      string        // relaymon version for the header
	Refresh      time.Duration // view refresh cadence; 0 means 1s
	ProcessStart time.Time     // daemon start time; zero falls back to session uptime
}

// Model is the Bubble Tea model for the dashboard. It is a pure consumer of
// the tracker: every refresh copies out status, the latest sample window,
// and the connection set, so rendering never blocks the sampler loop.
type Model struct {
	cfg Config

	width  int
	height int

	spin spinner.Model

	status    tracker.Status
	sample    tracker.ResourceSample
	hasSample bool

	cpuSeries []float64
	memSeries []float64

	conns         []tracker.Connection
	connsNotice   string
	firstSeen     map[tracker.Connection]time.Time
	fetchingConns bool

	events      []eventEntry
	eventsCh    <-chan tracker.Event
	unsubscribe func()

	eventView     viewport.Model
	viewportReady bool

	sessionStart time.Time
	paused       bool
	showHelp     bool
	quitting     bool
}

// eventEntry is one rendered line of the event log.
type eventEntry struct {
	at   time.Time
	text string
}

// tickMsg signals a periodic view refresh.
type tickMsg time.Time

// connectionsMsg carries the result of an on-demand connection lookup.
type connectionsMsg struct {
	conns []tracker.Connection
	err   error
}

// trackerEventMsg carries one event from the tracker subscription.
type trackerEventMsg tracker.Event

// New builds the dashboard model. The tracker must already be started; the
// model subscribes to its events and unsubscribes when the user quits.
func New(cfg Config) Model {
	if cfg.Refresh <= 0 {
		cfg.Refresh = time.Second
	}

	sp := spinner.New()
	sp.Spinner = ui.SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ui.ColorSecondary)

	ch, cancel := cfg.Tracker.Subscribe()

	m := Model{
		cfg:          cfg,
		spin:         sp,
		firstSeen:    make(map[tracker.Connection]time.Time),
		eventsCh:     ch,
		unsubscribe:  cancel,
		sessionStart: time.Now(),
	}
	m.refreshFromTracker()
	return m
}

// Init starts the refresh timer, the spinner, the event pump, and the first
// connection lookup.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.spin.Tick,
		waitForEvent(m.eventsCh),
		m.fetchConnectionsCmd(),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}
		// Unhandled keys scroll the event log
		var vpCmd tea.Cmd
		m.eventView, vpCmd = m.eventView.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeEventView()
		m.syncEventView()

	case tickMsg:
		m.refreshFromTracker()
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.fetchingConns {
			m.fetchingConns = true
			cmds = append(cmds, m.fetchConnectionsCmd())
		}
		return m, tea.Batch(cmds...)

	case connectionsMsg:
		m.fetchingConns = false
		if msg.err != nil {
			m.connsNotice = connectionNotice(msg.err)
		} else {
			m.applyConnections(msg.conns)
		}

	case trackerEventMsg:
		m.appendEvent(tracker.Event(msg))
		return m, waitForEvent(m.eventsCh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

// tickCmd returns a command that sends a tick after the refresh interval.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchConnectionsCmd returns a command that pulls the current connection
// set. Lookups can block up to the tracker's query timeout, so they run as
// a command rather than inline in Update.
func (m Model) fetchConnectionsCmd() tea.Cmd {
	t := m.cfg.Tracker
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connFetchTimeout)
		defer cancel()
		conns, err := t.Connections(ctx)
		return connectionsMsg{conns: conns, err: err}
	}
}

// waitForEvent blocks on the tracker subscription and forwards one event.
// Re-armed from Update after each delivery.
func waitForEvent(ch <-chan tracker.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return trackerEventMsg(e)
	}
}

// refreshFromTracker copies out the tracker's current status, latest sample,
// and the derived sparkline series.
func (m *Model) refreshFromTracker() {
	t := m.cfg.Tracker
	m.status = t.Status()
	m.paused = m.status.Paused

	if s, ok := t.LatestSample(); ok {
		m.sample = s
		m.hasSample = true
	}

	window := t.History(historyWindow)
	m.cpuSeries = cpuPercentSeries(window)
	m.memSeries = memorySeries(window)
}

// applyConnections installs a new connection set and diffs it against the
// previous one to keep per-connection first-seen times. A connection that
// closes and reopens starts its age over.
func (m *Model) applyConnections(conns []tracker.Connection) {
	now := time.Now()

	seen := make(map[tracker.Connection]time.Time, len(conns))
	for _, c := range conns {
		if at, ok := m.firstSeen[c]; ok {
			seen[c] = at
		} else {
			seen[c] = now
		}
	}
	m.firstSeen = seen

	sort.Slice(conns, func(i, j int) bool {
		a, b := conns[i], conns[j]
		if a.Protocol != b.Protocol {
			return a.Protocol < b.Protocol
		}
		if a.LocalPort != b.LocalPort {
			return a.LocalPort < b.LocalPort
		}
		if a.RemoteAddr != b.RemoteAddr {
			return a.RemoteAddr < b.RemoteAddr
		}
		return a.RemotePort < b.RemotePort
	})
	m.conns = conns
	m.connsNotice = ""
}

// appendEvent adds an event to the bounded log and scrolls the viewport to
// the newest entry.
func (m *Model) appendEvent(e tracker.Event) {
	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}
	m.events = append(m.events, eventEntry{at: at, text: e.Message()})
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
	m.syncEventView()
	if m.viewportReady {
		m.eventView.GotoBottom()
	}
}

// resizeEventView sizes the event viewport for the current terminal.
func (m *Model) resizeEventView() {
	width := m.panelWidth() - 4
	if width < 10 {
		width = 10
	}

	height := 5
	if m.height >= HeightStandard {
		height = 10
	} else if m.height < HeightMinimal {
		height = 3
	}

	if !m.viewportReady {
		m.eventView = viewport.New(width, height)
		m.viewportReady = true
	} else {
		m.eventView.Width = width
		m.eventView.Height = height
	}
}

// syncEventView pushes the rendered event lines into the viewport.
func (m *Model) syncEventView() {
	if !m.viewportReady {
		return
	}
	m.eventView.SetContent(m.renderEventLines())
}

// renderEventLines formats the event log, newest last.
func (m Model) renderEventLines() string {
	if len(m.events) == 0 {
		return mutedStyle.Render("no events yet")
	}

	var b strings.Builder
	for i, e := range m.events {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(mutedStyle.Render(e.at.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(e.text)
	}
	return b.String()
}

// panelWidth is the rendered width of each panel.
func (m Model) panelWidth() int {
	switch {
	case m.width <= 0:
		return BreakpointCompact
	case m.width > BreakpointStandard:
		return BreakpointStandard
	default:
		return m.width
	}
}

// ShowFooter reports whether the terminal is tall enough for the footer.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}

// Uptime returns the daemon uptime when its start time is known, otherwise
// the monitoring session uptime.
func (m Model) Uptime() (time.Duration, bool) {
	if !m.cfg.ProcessStart.IsZero() {
		return time.Since(m.cfg.ProcessStart), true
	}
	return time.Since(m.sessionStart), false
}

// LatestCPUPercent returns the most recent derived CPU percentage.
func (m Model) LatestCPUPercent() (float64, bool) {
	if len(m.cpuSeries) == 0 {
		return 0, false
	}
	return m.cpuSeries[len(m.cpuSeries)-1], true
}

// cpuPercentSeries derives CPU utilization percentages from consecutive
// cumulative samples. A process busier than one core can exceed 100.
func cpuPercentSeries(samples []tracker.ResourceSample) []float64 {
	if len(samples) < 2 {
		return nil
	}

	out := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]

		wall := cur.Timestamp.Sub(prev.Timestamp)
		if wall <= 0 {
			continue
		}

		busy := (cur.CPUUser + cur.CPUSystem) - (prev.CPUUser + prev.CPUSystem)
		if busy < 0 {
			// Counter went backwards: the pid was recycled or the
			// resolver switched. Skip rather than plot garbage.
			continue
		}

		out = append(out, busy.Seconds()/wall.Seconds()*100)
	}
	return out
}

// memorySeries extracts resident memory for sparkline rendering.
func memorySeries(samples []tracker.ResourceSample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		out = append(out, float64(s.MemoryResident))
	}
	return out
}

// connectionNotice maps a lookup failure to the short notice shown in the
// connections panel.
func connectionNotice(err error) string {
	if errors.Is(err, tracker.ErrNoResolverAvailable) {
		return "connection queries degraded, retrying in the background"
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx > 0 {
		msg = msg[:idx]
	}
	return msg
}
