package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The palette sticks to ANSI color numbers so it degrades sanely on
// 16-color terminals and respects the user's terminal theme.

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// Accent colors for branding and emphasis. These use the 256-color space;
// terminals without it fall back to the nearest ANSI color.
const (
	ColorAccent    lipgloss.Color = "205" // Pink, the relaymon brand color
	ColorHighlight lipgloss.Color = "81"  // Bright cyan for values that matter
	ColorBorder    lipgloss.Color = "238" // Subtle gray for dividers and frames
)

// GradientColors is the cycle the animated spinner walks through.
var GradientColors = []lipgloss.Color{"205", "135", "81", "84"}

// SuccessStyle returns the style for success messages.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle returns the style for error messages.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle returns the style for warning messages.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// InfoStyle returns the style for informational messages.
func InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorInfo)
}

// MutedStyle returns the style for secondary text.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// DisableColors switches all styled output to plain text.
// Used for ui.color=never and the --no-color flag.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ForceColors enables 256-color output even when stdout is not a terminal.
// Used for ui.color=always.
func ForceColors() {
	lipgloss.SetColorProfile(termenv.ANSI256)
}

// PrintWarning prints a styled warning line to stderr.
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle().Render(SymbolWarning), message)
}
