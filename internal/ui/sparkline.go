package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels, lowest to highest.
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline draws a mini graph of the most recent values, colored by
// where the latest value sits against the usual percentage thresholds.
// Use it for series that are percentages; for raw values (bytes, counts)
// use RenderSparklineColored with a fixed color instead.
func RenderSparkline(data []float64, width int) string {
	blocks := sparklineRow(data, width)
	if blocks == "" {
		return ""
	}
	color := ThresholdColor(data[len(data)-1])
	return lipgloss.NewStyle().Foreground(color).Render(blocks)
}

// RenderSparklineColored draws a mini graph in a single fixed color.
func RenderSparklineColored(data []float64, width int, color lipgloss.Color) string {
	blocks := sparklineRow(data, width)
	if blocks == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(color).Render(blocks)
}

// sparklineRow maps the last width values onto the 8 block levels, scaled
// to the min/max of the visible slice.
func sparklineRow(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3) // block chars are 3 bytes in UTF-8

	numLevels := len(sparklineBlockRunes)
	valueRange := maxVal - minVal

	for _, v := range data {
		var level int
		if valueRange == 0 {
			// Flat series renders at the middle level
			level = numLevels / 2
		} else {
			normalized := (v - minVal) / valueRange
			level = int(normalized * float64(numLevels-1))
			if level < 0 {
				level = 0
			} else if level >= numLevels {
				level = numLevels - 1
			}
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	return sb.String()
}

// ThresholdColor returns the status color for a percentage:
// green below 60, yellow from 60, red from 80.
func ThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
