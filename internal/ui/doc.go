// Package ui provides terminal UI components shared by relaymon's CLI
// commands and the dashboard.
//
// The package includes spinners, tables, sparklines, and value formatting
// on top of the Lip Gloss library so every surface styles output the
// same way.
//
// # Components Overview
//
//	Spinner      - Animated status indicator for connection tests and checks
//	Sparkline    - Mini line graphs for resource history
//	Tables       - Bubbles tables for connections and doctor output
//	Header       - Branded header for one-shot command output
//	Format*      - Byte, percent and uptime formatting helpers
//
// # Color Scheme
//
// Colors are defined as ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Healthy values, passing checks
//	ColorError     (red)    - Failures and critical thresholds
//	ColorWarning   (yellow) - Warnings and elevated thresholds
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//	ColorAccent    (pink)   - Brand accents in headers and the dashboard
//
// # Symbols
//
// Unicode symbols provide visual status indicators:
//
//	SymbolSuccess  (checkmark)  - Check passed
//	SymbolFail     (X)          - Check failed
//	SymbolPending  (circle)     - Not yet started
//	SymbolProgress (half-fill)  - In progress
//	SymbolComplete (filled)     - Done (alternative)
//	SymbolSkipped  (slashed)    - Skipped
//
// # Spinner Usage
//
// The Spinner type provides an animated indicator for operations:
//
//	s := ui.NewSpinner("Testing connection")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail() or s.Skip()
//
// The spinner handles terminal output, clearing lines, and timing display.
//
// # Sparklines
//
// Sparklines condense a series into one row of block characters:
//
//	ui.RenderSparkline(cpuHistory, 30)
//
// Percentage series are colored by where the latest value sits against
// the usual thresholds: green below 60, yellow from 60, red from 80.
// Raw series (bytes, counts) use RenderSparklineColored with a fixed color.
//
// # Bubble Tea Components
//
// The dashboard embeds SpinnerFrames in its own spinner model so the
// full-screen TUI animates with the same frames as the CLI.
package ui
