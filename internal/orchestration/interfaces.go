package orchestration

import (
	"io"
	"math/big"
	"sync"
	"time"
)

// CalculationResult encapsulates the outcome of a single strategy run.
// It serves as the shared domain type between orchestration and presentation layers.
type CalculationResult struct {
	// Name is the identifier of the strategy used (e.g., "Sequential").
	Name string
	// Result is the computed total. It is nil if an error occurred.
	Result *big.Int
	// Duration is the wall time of the run.
	Duration time.Duration
	// Err contains any error that occurred during the run.
	Err error
	// Parallel is set for strategies that distribute the work across ranks.
	Parallel bool
	// Ranks holds the per-rank results of a distributed run, in rank order.
	Ranks []RankResult
}

// PresentationOptions configures how results are presented to the user.
type PresentationOptions struct {
	N       int
	Verbose bool
	Details bool
}

// ProgressUpdate is a progress value in [0, 1] reported by one strategy.
type ProgressUpdate struct {
	StrategyIndex int
	Value         float64
}

// ProgressFunc receives the fraction of work done by a strategy.
type ProgressFunc func(value float64)

// ProgressReporter defines the interface for displaying run progress.
// This interface decouples the orchestration layer from the presentation layer.
type ProgressReporter interface {
	// DisplayProgress consumes progressChan until it is closed, then calls
	// wg.Done. It is run in its own goroutine.
	DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, numStrategies int, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, numStrategies int, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, numStrategies int, out io.Writer) {
	f(wg, progressChan, numStrategies, out)
}

// NullProgressReporter is a no-op implementation of ProgressReporter.
// It drains the progress channel without displaying anything.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, _ int, _ io.Writer) {
	defer wg.Done()
	for range progressChan {
	}
}

// ResultPresenter defines the interface for presenting run results.
type ResultPresenter interface {
	// PresentComparisonTable displays the comparison summary table.
	PresentComparisonTable(results []CalculationResult, out io.Writer)

	// PresentResult displays the final result.
	PresentResult(result CalculationResult, opts PresentationOptions, out io.Writer)

	ErrorHandler
}

// ErrorHandler handles run errors and returns exit codes.
type ErrorHandler interface {
	HandleError(err error, duration time.Duration, out io.Writer) int
}
