package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestColorConstants(t *testing.T) {
	// The palette uses ANSI color numbers, not hex codes
	colors := []lipgloss.Color{
		ColorSuccess,
		ColorError,
		ColorWarning,
		ColorInfo,
		ColorPrimary,
		ColorSecondary,
		ColorMuted,
		ColorAccent,
		ColorHighlight,
		ColorBorder,
	}

	for _, color := range colors {
		colorStr := string(color)
		assert.NotEmpty(t, colorStr, "color should not be empty")
		for _, c := range colorStr {
			assert.True(t, c >= '0' && c <= '9', "color should be an ANSI number: %s", colorStr)
		}
	}
}

func TestGradientColors(t *testing.T) {
	assert.Len(t, GradientColors, 4)

	for i, color := range GradientColors {
		assert.NotEmpty(t, string(color), "gradient color %d should not be empty", i)
	}
}

func TestStylesAreFunctional(t *testing.T) {
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Success", SuccessStyle()},
		{"Error", ErrorStyle()},
		{"Warning", WarningStyle()},
		{"Info", InfoStyle()},
		{"Muted", MutedStyle()},
	}

	for _, tt := range styles {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.style.Render("test text")
			assert.Contains(t, result, "test text")
		})
	}
}

func TestSymbolWarning(t *testing.T) {
	assert.Equal(t, "⚠", SymbolWarning)
}

func TestPrintWarning(t *testing.T) {
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	os.Stderr = w

	PrintWarning("test warning message")

	w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	assert.Contains(t, output, "test warning message")
	assert.Contains(t, output, SymbolWarning)
}

func TestColorModeSwitches(t *testing.T) {
	original := lipgloss.ColorProfile()
	defer lipgloss.SetColorProfile(original)

	assert.NotPanics(t, func() {
		DisableColors()
	})

	// With colors disabled, styles still render the content as plain text
	rendered := SuccessStyle().Render("plain")
	assert.Equal(t, "plain", rendered)

	assert.NotPanics(t, func() {
		ForceColors()
	})
	rendered = SuccessStyle().Render("colored")
	assert.Contains(t, rendered, "colored")
}
