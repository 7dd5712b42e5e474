package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/relaymon/relaymon/internal/tracker"
	"github.com/relaymon/relaymon/internal/ui"
)

// Base styles for the dashboard. Built on the shared palette so the TUI
// matches the one-shot commands.
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ui.ColorAccent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(ui.ColorSecondary)

	valueStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	noticeStyle = lipgloss.NewStyle().
			Foreground(ui.ColorWarning)

	degradedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorWarning).
			Bold(true)

	borderStyle = lipgloss.NewStyle().
			Foreground(ui.ColorBorder)

	footerStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)
)

// Status indicator glyphs for the sampler state.
const (
	GlyphPolling  = "◉" // Filled target, healthy polling
	GlyphBackoff  = "◔" // Partially filled, retry burst in progress
	GlyphDegraded = "◌" // Dashed circle, no resolver left
	GlyphStopped  = "○" // Empty circle, idle or stopped
)

// StateGlyph returns the indicator character and style for a sampler state.
func StateGlyph(s tracker.State) (string, lipgloss.Style) {
	switch s {
	case tracker.StatePolling:
		return GlyphPolling, lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	case tracker.StateBackoff:
		return GlyphBackoff, lipgloss.NewStyle().Foreground(ui.ColorWarning)
	case tracker.StateDegraded:
		return GlyphDegraded, lipgloss.NewStyle().Foreground(ui.ColorError)
	default:
		return GlyphStopped, mutedStyle
	}
}

// SectionHeader renders a panel header with the title on the left and a
// value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	// Left: "╭─ " + title + " ", right: " " + value + " ╮"
	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}
	middle := strings.Repeat("─", fillWidth)

	headerTitle := lipgloss.NewStyle().Foreground(ui.ColorAccent).Bold(true)
	headerValue := lipgloss.NewStyle().Foreground(ui.ColorHighlight).Bold(true)

	return borderStyle.Render("╭─ ") +
		headerTitle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		headerValue.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a panel.
// Format: ╰────────────────────────────────────────────────────╯
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	middle := strings.Repeat("─", width-2)
	return borderStyle.Render("╰" + middle + "╯")
}

// SectionContentLine renders a panel content line with side borders, padded
// to width.
// Format: │ content                                              │
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	contentWidth := lipgloss.Width(content)
	innerWidth := width - 4

	padding := innerWidth - contentWidth
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}

// ProgressBar renders a filled/empty gauge colored by the usual thresholds.
func ProgressBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("▰")
		} else {
			bar.WriteString("▱")
		}
	}

	return lipgloss.NewStyle().Foreground(ui.ThresholdColor(percent)).Render(bar.String())
}
