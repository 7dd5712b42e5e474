package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version string // Version string (e.g., "v0.3.0")
	Tagline string // Optional tagline (e.g., "Relay daemon monitor")
	Target  string // Optional monitored target (e.g., "relayd on relay-box")
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 50

// RenderHeader renders the branded header used by the one-shot commands.
// No ASCII art, just clean typography with the accent colors.
func RenderHeader(info HeaderInfo) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	versionStyle := lipgloss.NewStyle().
		Foreground(ColorHighlight)

	taglineStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	dividerStyle := lipgloss.NewStyle().
		Foreground(ColorBorder)

	var output strings.Builder

	// Title line: "relaymon v0.3.0"
	output.WriteString(titleStyle.Render("relaymon"))
	output.WriteString(" ")
	output.WriteString(versionStyle.Render(info.Version))
	output.WriteString("\n")

	if info.Tagline != "" {
		output.WriteString(taglineStyle.Render(info.Tagline))
		output.WriteString("\n")
	}

	if info.Target != "" {
		targetStyle := lipgloss.NewStyle().Foreground(ColorMuted)
		output.WriteString(targetStyle.Render(info.Target))
		output.WriteString("\n")
	}

	// Divider line
	output.WriteString(dividerStyle.Render(strings.Repeat("━", HeaderWidth)))
	output.WriteString("\n")

	return output.String()
}

// PrintHeader prints the styled header to stdout.
func PrintHeader(info HeaderInfo) {
	fmt.Print(RenderHeader(info))
}
