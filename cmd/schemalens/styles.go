package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primary = lipgloss.Color("#5b7fa6")
	muted   = lipgloss.Color("#7f7f7f")

	titleStyle    = lipgloss.NewStyle().Foreground(primary).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(muted).Italic(true)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6a9f3a")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0504d")).Bold(true)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable lays rows out under a bold header row.
func renderTable(header []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		BorderColumn(false).
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return labelStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		String()
}

func formatAny(v any) string {
	if v == nil {
		return mutedStyle.Render("-")
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
