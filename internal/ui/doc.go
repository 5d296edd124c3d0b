// Package ui provides theme and color support for fibsum's console output.
// It defines color schemes and ANSI escape code functions for consistent
// styling across the CLI, plus lipgloss styles for section headings.
package ui
