package dashboard

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
)

// maxConnectionRows caps the connections panel; the rest collapses into a
// "+N more" line.
const maxConnectionRows = 12

// renderDashboard assembles the full screen.
func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderResources(),
		m.renderConnections(),
		m.renderEvents(),
	}
	if m.ShowFooter() {
		sections = append(sections, m.renderFooter())
	}
	return strings.Join(sections, "\n") + "\n"
}

// renderHeader renders the two-line header plus divider: program identity
// and sampler state on the first line, the monitored target on the second.
func (m Model) renderHeader() string {
	width := m.panelWidth()
	sep := mutedStyle.Render(" │ ")

	glyph, glyphStyle := StateGlyph(m.status.State)
	state := glyphStyle.Render(glyph + " " + m.status.State.String())
	if m.paused {
		state = pausedStyle.Render(glyph + " paused")
	}

	title := titleStyle.Render("relaymon")
	if m.cfg.Version != "" {
		title += " " + mutedStyle.Render(m.cfg.Version)
	}

	line1 := title + sep + state

	target := m.cfg.Target
	if target == "" {
		target = "process"
	}
	info := []string{
		valueStyle.Render(target) + mutedStyle.Render(fmt.Sprintf(" (pid %d)", m.cfg.PID)),
		labelStyle.Render("resolver ") + valueStyle.Render(m.resolverLabel()),
	}
	if up, daemon := m.Uptime(); daemon {
		info = append(info, labelStyle.Render("up ")+valueStyle.Render(ui.FormatUptime(up)))
	} else {
		info = append(info, labelStyle.Render("watching ")+valueStyle.Render(ui.FormatUptime(up)))
	}
	line2 := strings.Join(info, sep)

	divider := borderStyle.Render(strings.Repeat("─", width))

	return line1 + "\n" + line2 + "\n" + divider
}

// resolverLabel names the active resource resolver, or "none" when the
// capability is degraded.
func (m Model) resolverLabel() string {
	if m.status.Resolver == "" {
		return "none"
	}
	return m.status.Resolver
}

// renderResources renders the CPU, memory, and file descriptor panel.
func (m Model) renderResources() string {
	width := m.panelWidth()

	var lines []string
	lines = append(lines, SectionHeader("Resources", m.sampleAge(), width))

	if !m.hasSample {
		waiting := m.spin.View() + " " + mutedStyle.Render("waiting for first sample")
		lines = append(lines, SectionContentLine(waiting, width))
		lines = append(lines, SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	// Label (5) and value (14) columns frame the sparkline.
	innerWidth := width - 4
	sparkWidth := innerWidth - 5 - 14
	if sparkWidth < 10 {
		sparkWidth = 10
	}

	cpuValue := "n/a"
	if pct, ok := m.LatestCPUPercent(); ok {
		cpuValue = ui.FormatPercent(pct)
	}
	cpuLine := labelStyle.Render(ui.PadRight("CPU", 5)) +
		ui.PadRight(ui.RenderSparkline(m.cpuSeries, sparkWidth), sparkWidth+1) +
		valueStyle.Render(cpuValue)
	lines = append(lines, SectionContentLine(cpuLine, width))

	memLine := labelStyle.Render(ui.PadRight("MEM", 5)) +
		ui.PadRight(ui.RenderSparklineColored(m.memSeries, sparkWidth, ui.ColorHighlight), sparkWidth+1) +
		valueStyle.Render(ui.FormatBytes(m.sample.MemoryResident))
	lines = append(lines, SectionContentLine(memLine, width))

	fdLine := labelStyle.Render(ui.PadRight("FDS", 5)) +
		ui.PadRight(m.fdGauge(sparkWidth), sparkWidth+1) +
		valueStyle.Render(m.fdLabel())
	lines = append(lines, SectionContentLine(fdLine, width))

	if m.status.State == tracker.StateDegraded {
		notice := degradedStyle.Render("resource queries degraded, showing last-known data")
		lines = append(lines, SectionContentLine(notice, width))
	} else if m.paused {
		lines = append(lines, SectionContentLine(noticeStyle.Render("sampling paused"), width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// sampleAge describes how fresh the latest sample is.
func (m Model) sampleAge() string {
	if !m.hasSample {
		return "waiting"
	}
	age := time.Since(m.sample.Timestamp)
	if age < time.Second {
		return "now"
	}
	return ui.FormatUptime(age) + " ago"
}

// fdGauge renders the descriptor usage bar. Without a limit there is no
// percentage to show, so the slot collapses to a placeholder.
func (m Model) fdGauge(width int) string {
	if m.sample.FDsLimit == 0 {
		return mutedStyle.Render(strings.Repeat("▱", width))
	}
	pct := float64(m.sample.FDsUsed) / float64(m.sample.FDsLimit) * 100
	return ProgressBar(width, pct)
}

// fdLabel formats the descriptor count against its limit.
func (m Model) fdLabel() string {
	if m.sample.FDsLimit == 0 {
		return fmt.Sprintf("%d open", m.sample.FDsUsed)
	}
	return fmt.Sprintf("%d / %d", m.sample.FDsUsed, m.sample.FDsLimit)
}

// renderConnections renders the connection table with per-connection age.
func (m Model) renderConnections() string {
	width := m.panelWidth()
	compact := width <= BreakpointCompact

	var lines []string
	lines = append(lines, SectionHeader("Connections", fmt.Sprintf("%d", len(m.conns)), width))

	if m.connsNotice != "" {
		lines = append(lines, SectionContentLine(noticeStyle.Render(m.connsNotice), width))
	}

	if len(m.conns) == 0 {
		if m.connsNotice == "" {
			lines = append(lines, SectionContentLine(mutedStyle.Render("no open connections"), width))
		}
		lines = append(lines, SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	header := ui.PadRight("PROTO", 7) + ui.PadRight("LOCAL", 22) + ui.PadRight("REMOTE", 22)
	if !compact {
		header += ui.PadRight("APP", 12)
	}
	header += "AGE"
	lines = append(lines, SectionContentLine(labelStyle.Render(header), width))

	shown := m.conns
	if len(shown) > maxConnectionRows {
		shown = shown[:maxConnectionRows]
	}

	now := time.Now()
	for _, c := range shown {
		row := mutedStyle.Render(ui.PadRight(c.Protocol, 7)) +
			valueStyle.Render(ui.PadRight(ui.FormatEndpoint(c.LocalAddr, c.LocalPort), 22)) +
			valueStyle.Render(ui.PadRight(ui.FormatEndpoint(c.RemoteAddr, c.RemotePort), 22))
		if !compact {
			row += mutedStyle.Render(ui.PadRight(m.appFor(c), 12))
		}
		row += mutedStyle.Render(connectionAge(m.firstSeen[c], now))
		lines = append(lines, SectionContentLine(row, width))
	}

	if hidden := len(m.conns) - len(shown); hidden > 0 {
		lines = append(lines, SectionContentLine(mutedStyle.Render(fmt.Sprintf("+%d more", hidden)), width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// connectionAge formats how long a connection has been in the table.
func connectionAge(firstSeen time.Time, now time.Time) string {
	if firstSeen.IsZero() {
		return "-"
	}
	return ui.FormatUptime(now.Sub(firstSeen))
}

// appFor resolves the application on the far side of a loopback connection.
// Remote machines are opaque, and the near side is always the monitored
// daemon itself, so only loopback peers get a name.
func (m Model) appFor(c tracker.Connection) string {
	if m.cfg.Ports == nil || !isLoopback(c.RemoteAddr) {
		return "-"
	}

	app, err := m.cfg.Ports.Fetch(c.RemotePort)
	switch {
	case err == nil:
		return app.Name
	case errors.Is(err, tracker.ErrUnresolvedResult):
		return "..."
	default:
		return "-"
	}
}

// isLoopback reports whether addr is a loopback IP.
func isLoopback(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// renderEvents renders the scrollable event log.
func (m Model) renderEvents() string {
	width := m.panelWidth()

	var lines []string
	lines = append(lines, SectionHeader("Events", fmt.Sprintf("%d", len(m.events)), width))

	if m.viewportReady {
		for _, line := range strings.Split(m.eventView.View(), "\n") {
			lines = append(lines, SectionContentLine(line, width))
		}
	} else {
		lines = append(lines, SectionContentLine(m.renderEventLines(), width))
	}

	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// renderFooter renders key hints and standing notices.
func (m Model) renderFooter() string {
	hints := footerStyle.Render("q quit · p pause · r refresh · ? help")

	var notices []string
	if m.status.ConnectionsDegraded {
		notices = append(notices, degradedStyle.Render("connections degraded"))
	}
	if m.cfg.Ports != nil && m.cfg.Ports.Aborted() {
		notices = append(notices, noticeStyle.Render("port lookups disabled"))
	}

	if len(notices) == 0 {
		return hints
	}
	return hints + mutedStyle.Render("  │  ") + strings.Join(notices, mutedStyle.Render(" · "))
}
