package ui

// Unicode symbols for status indicators, shared by the CLI commands and
// the dashboard so every surface reports state the same way.
const (
	SymbolSuccess  = "✓" // Check passed
	SymbolFail     = "✗" // Check failed
	SymbolPending  = "○" // Not yet started
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done
	SymbolSkipped  = "⊘" // Skipped
	SymbolWarning  = "⚠" // Needs attention
)
