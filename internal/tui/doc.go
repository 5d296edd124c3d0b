// Package tui implements the interactive dashboard enabled with -tui.
//
// The dashboard runs the selected strategies through the orchestration
// layer and follows them live: one progress bar per strategy, CPU and memory
// sparklines sampled with gopsutil, the comparison status and, on demand,
// the per-rank partition table of the distributed strategy. Progress and
// results reach the bubbletea program through the bridge types, which
// implement the orchestration reporter and presenter interfaces.
package tui
