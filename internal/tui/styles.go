package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/fibsum/internal/ui"
)

// Dashboard styles, rebuilt from the ui theme by initStyles.
var (
	titleStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	accentStyle  lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	panelStyle   lipgloss.Style
)

func init() {
	initStyles()
}

// initStyles rebuilds the styles from the current ui theme. Run calls it
// again once InitTheme has applied the flags and environment.
func initStyles() {
	t := ui.GetCurrentTheme()
	base := lipgloss.NewStyle()
	panelStyle = base.Border(lipgloss.RoundedBorder()).Padding(0, 1)

	if !t.Colored() {
		titleStyle = base.Bold(true)
		dimStyle, accentStyle, successStyle, errorStyle = base, base, base, base
		return
	}
	titleStyle = base.Bold(true).Foreground(lipgloss.Color(t.Primary))
	dimStyle = base.Foreground(lipgloss.Color(t.Secondary))
	accentStyle = base.Foreground(lipgloss.Color(t.Primary))
	successStyle = base.Foreground(lipgloss.Color(t.Success)).Bold(true)
	errorStyle = base.Foreground(lipgloss.Color(t.Error)).Bold(true)
	panelStyle = panelStyle.BorderForeground(lipgloss.Color(t.Secondary))
}
