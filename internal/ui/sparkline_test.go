package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSparkline_EmptyData(t *testing.T) {
	result := RenderSparkline([]float64{}, 10)
	assert.Empty(t, result, "empty data should return empty string")
}

func TestRenderSparkline_NilData(t *testing.T) {
	result := RenderSparkline(nil, 10)
	assert.Empty(t, result, "nil data should return empty string")
}

func TestRenderSparkline_ZeroWidth(t *testing.T) {
	result := RenderSparkline([]float64{50, 60, 70}, 0)
	assert.Empty(t, result, "zero width should return empty string")
}

func TestRenderSparkline_NegativeWidth(t *testing.T) {
	result := RenderSparkline([]float64{50, 60, 70}, -5)
	assert.Empty(t, result, "negative width should return empty string")
}

func TestRenderSparkline_SingleValue(t *testing.T) {
	result := RenderSparkline([]float64{50}, 10)
	assert.NotEmpty(t, result, "single value should produce output")
	assert.True(t, containsBlockChar(result), "should contain a block character")
}

func TestRenderSparkline_AllSameValues(t *testing.T) {
	result := RenderSparkline([]float64{50, 50, 50, 50}, 10)
	// A flat series renders middle-level blocks rather than collapsing
	assert.NotEmpty(t, result, "same values should produce output")
}

func TestRenderSparkline_IncreasingValues(t *testing.T) {
	data := []float64{0, 25, 50, 75, 100}
	result := RenderSparkline(data, 10)

	assert.NotEmpty(t, result, "increasing values should produce output")
	stripped := stripANSI(result)
	assert.Equal(t, 5, len([]rune(stripped)), "should have one block per data point")
}

func TestRenderSparkline_WidthTruncation(t *testing.T) {
	// Data has 10 points, but we only want to show 5
	data := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	result := RenderSparkline(data, 5)

	stripped := stripANSI(result)
	assert.Equal(t, 5, len([]rune(stripped)), "should show only last 5 data points")
}

func TestRenderSparkline_DataShorterThanWidth(t *testing.T) {
	data := []float64{25, 50, 75}
	result := RenderSparkline(data, 10)

	stripped := stripANSI(result)
	assert.Equal(t, 3, len([]rune(stripped)), "should show all 3 data points")
}

func TestRenderSparkline_MixedBoundaries(t *testing.T) {
	data := []float64{0, 50, 100}
	result := RenderSparkline(data, 10)

	stripped := stripANSI(result)
	runes := []rune(stripped)

	// First should be lowest block, last should be highest
	assert.Equal(t, '▁', runes[0], "0 should map to lowest block")
	assert.Equal(t, '█', runes[2], "100 should map to highest block")
}

func TestRenderSparkline_NegativeValues(t *testing.T) {
	data := []float64{-50, -25, 0, 25, 50}
	result := RenderSparkline(data, 10)

	stripped := stripANSI(result)
	assert.Equal(t, 5, len([]rune(stripped)), "should handle negative values")
}

func TestRenderSparklineColored(t *testing.T) {
	// Raw series (bytes) scale against their own min/max, not 0-100
	data := []float64{1024, 2048, 4096}
	result := RenderSparklineColored(data, 10, ColorHighlight)

	stripped := stripANSI(result)
	runes := []rune(stripped)
	assert.Equal(t, 3, len(runes))
	assert.Equal(t, '▁', runes[0], "min should map to lowest block")
	assert.Equal(t, '█', runes[2], "max should map to highest block")
}

func TestRenderSparklineColored_EmptyData(t *testing.T) {
	result := RenderSparklineColored(nil, 10, ColorHighlight)
	assert.Empty(t, result)
}

func TestSparklineBlocksConstant(t *testing.T) {
	// Verify the blocks are in ascending order (visual height)
	expected := "▁▂▃▄▅▆▇█"
	assert.Equal(t, expected, sparklineBlocks, "sparkline blocks should be in ascending order")
}

func TestThresholdColor(t *testing.T) {
	tests := []struct {
		percent  float64
		expected string
	}{
		{0, string(ColorSuccess)},
		{30, string(ColorSuccess)},
		{59.9, string(ColorSuccess)},
		{60, string(ColorWarning)},
		{70, string(ColorWarning)},
		{79.9, string(ColorWarning)},
		{80, string(ColorError)},
		{90, string(ColorError)},
		{100, string(ColorError)},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			result := ThresholdColor(tt.percent)
			assert.Equal(t, tt.expected, string(result), "percent %.1f should have correct color", tt.percent)
		})
	}
}

// Helper functions

func containsBlockChar(s string) bool {
	blocks := "▁▂▃▄▅▆▇█"
	for _, r := range s {
		if strings.ContainsRune(blocks, r) {
			return true
		}
	}
	return false
}

func stripANSI(s string) string {
	// Simple ANSI stripper for testing
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
