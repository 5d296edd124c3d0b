package ui

import "github.com/charmbracelet/lipgloss"

// Heading renders a section title such as "--- Comparison Summary ---" in
// the primary color of the active theme. With colors disabled the title is
// returned unchanged.
func Heading(title string) string {
	text := "--- " + title + " ---"
	t := GetCurrentTheme()
	if !t.Colored() {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Primary)).Render(text)
}
