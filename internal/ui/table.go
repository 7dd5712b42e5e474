package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with the shared styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(string(ColorMuted))).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Cell = s.Cell.
		Foreground(lipgloss.Color(string(ColorPrimary)))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(string(ColorPrimary))).
		Background(lipgloss.Color(string(ColorMuted))).
		Bold(false)

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
// This is for one-shot CLI output (not the TUI), e.g. the connections listing.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := NewTable(columns, tableRows)
	return t.View()
}

// DoctorCheckRow represents a row in the doctor diagnostic table.
type DoctorCheckRow struct {
	Status     string // "pass", "warn", "fail"
	Category   string // Check category
	Message    string // Check result message
	Suggestion string // Suggestion for fixing (if failed)
}

// RenderDoctorTable renders doctor check results grouped by category.
func RenderDoctorTable(rows []DoctorCheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorSuccess)))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorError)))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorWarning)))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(string(ColorMuted)))
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(string(ColorPrimary)))

	var output string

	// Group by category, preserving first-seen order
	categories := make(map[string][]DoctorCheckRow)
	categoryOrder := []string{}
	for _, row := range rows {
		if _, exists := categories[row.Category]; !exists {
			categoryOrder = append(categoryOrder, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	for _, cat := range categoryOrder {
		output += headerStyle.Render(cat) + "\n"

		for _, row := range categories[cat] {
			var statusIcon string
			switch row.Status {
			case "pass":
				statusIcon = successStyle.Render(SymbolComplete)
			case "warn":
				statusIcon = warnStyle.Render(SymbolComplete)
			case "fail":
				statusIcon = errorStyle.Render(SymbolFail)
			default:
				statusIcon = mutedStyle.Render(SymbolPending)
			}

			output += "  " + statusIcon + " " + row.Message + "\n"

			if row.Suggestion != "" && row.Status != "pass" {
				output += "    " + mutedStyle.Render(row.Suggestion) + "\n"
			}
		}
		output += "\n"
	}

	return output
}

// PadRight pads a string to the specified visible width.
func PadRight(s string, width int) string {
	// lipgloss.Width ignores ANSI codes when measuring
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	padding := width - visibleLen
	for i := 0; i < padding; i++ {
		s += " "
	}
	return s
}
