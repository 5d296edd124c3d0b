package tui

import (
	"time"

	"github.com/agbru/fibsum/internal/orchestration"
)

// ProgressMsg carries one strategy's progress and the average over all
// strategies.
type ProgressMsg struct {
	StrategyIndex int
	Value         float64
	Average       float64
}

// ProgressDoneMsg is sent once the progress channel is closed.
type ProgressDoneMsg struct{}

// ComparisonResultsMsg carries the sorted results of a comparison.
type ComparisonResultsMsg struct {
	Results []orchestration.CalculationResult
}

// FinalResultMsg carries the result shown in the result panel.
type FinalResultMsg struct {
	Result orchestration.CalculationResult
}

// ErrorMsg reports a failed run.
type ErrorMsg struct {
	Err      error
	Duration time.Duration
}

// RunCompleteMsg is sent when every strategy has returned.
type RunCompleteMsg struct {
	ExitCode int
	Results  []orchestration.CalculationResult
}

// TickMsg drives the elapsed clock and system sampling.
type TickMsg time.Time

// SysStatsMsg carries one system-wide CPU and memory sample.
type SysStatsMsg struct {
	CPUPercent float64
	MemPercent float64
}
