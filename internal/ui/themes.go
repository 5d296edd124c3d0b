package ui

import (
	"os"
	"strings"
	"sync"
)

// ThemeEnv selects the theme when colors are enabled ("dark" or "light").
const ThemeEnv = "FIBSUM_THEME"

// Theme is a color scheme. Colors are xterm-256 color numbers shared by
// the ANSI helpers and the lipgloss styles; an empty number disables the
// color.
type Theme struct {
	Name string

	Primary   string
	Secondary string
	Success   string
	Warning   string
	Error     string
	Info      string
}

var (
	// DarkTheme uses bright colors for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:      "dark",
		Primary:   "39",
		Secondary: "245",
		Success:   "82",
		Warning:   "220",
		Error:     "196",
		Info:      "141",
	}

	// LightTheme uses darker colors for light terminal backgrounds.
	LightTheme = Theme{
		Name:      "light",
		Primary:   "27",
		Secondary: "240",
		Success:   "28",
		Warning:   "130",
		Error:     "124",
		Info:      "54",
	}

	// NoColorTheme disables all color output (NO_COLOR or --no-color).
	NoColorTheme = Theme{Name: "none"}

	themes = map[string]Theme{
		DarkTheme.Name:    DarkTheme,
		LightTheme.Name:   LightTheme,
		NoColorTheme.Name: NoColorTheme,
	}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// Colored reports whether the theme emits escape codes.
func (t Theme) Colored() bool { return t.Name != NoColorTheme.Name }

// ansi returns the foreground escape sequence for a color number.
func (t Theme) ansi(color string) string {
	if !t.Colored() || color == "" {
		return ""
	}
	return "\033[38;5;" + color + "m"
}

// sgr returns a plain SGR sequence such as bold, or "" without colors.
func (t Theme) sgr(code string) string {
	if !t.Colored() {
		return ""
	}
	return "\033[" + code + "m"
}

// GetCurrentTheme returns the active theme.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme replaces the active theme; tests use it to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme activates a theme by name. Unknown names select the dark theme.
func SetTheme(name string) {
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		t = DarkTheme
	}
	SetCurrentTheme(t)
}

// InitTheme picks the theme for this process. Colors are disabled by
// noColor or by NO_COLOR (https://no-color.org/); otherwise FIBSUM_THEME
// chooses between dark (default) and light.
func InitTheme(noColor bool) {
	if _, exists := os.LookupEnv("NO_COLOR"); noColor || exists {
		SetCurrentTheme(NoColorTheme)
		return
	}
	name := os.Getenv(ThemeEnv)
	if name == NoColorTheme.Name {
		name = DarkTheme.Name
	}
	SetTheme(name)
}
