package tui

import (
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/orchestration"
)

// sender is the part of *tea.Program the bridge needs.
type sender interface {
	Send(msg tea.Msg)
}

// programRef is a shared reference to the running program.
// bubbletea copies the model on every Update, so the bridge goroutines need
// a pointer that survives the copies.
type programRef struct {
	mu      sync.RWMutex
	program sender
}

// SetProgram sets the program reference (thread-safe).
func (r *programRef) SetProgram(p sender) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Send forwards msg to the program; it is a no-op before SetProgram.
func (r *programRef) Send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// ProgressReporter implements orchestration.ProgressReporter by forwarding
// updates to the dashboard.
type ProgressReporter struct {
	ref *programRef
}

var _ orchestration.ProgressReporter = (*ProgressReporter)(nil)

// DisplayProgress drains progressChan and sends a ProgressMsg per update.
func (t *ProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan orchestration.ProgressUpdate, numStrategies int, _ io.Writer) {
	defer wg.Done()

	values := make([]float64, numStrategies)
	for update := range progressChan {
		if update.StrategyIndex < 0 || update.StrategyIndex >= numStrategies {
			continue
		}
		values[update.StrategyIndex] = update.Value
		var sum float64
		for _, v := range values {
			sum += v
		}
		t.ref.Send(ProgressMsg{
			StrategyIndex: update.StrategyIndex,
			Value:         update.Value,
			Average:       sum / float64(numStrategies),
		})
	}
	t.ref.Send(ProgressDoneMsg{})
}

// ResultPresenter implements orchestration.ResultPresenter by sending the
// results to the dashboard instead of writing them.
type ResultPresenter struct {
	ref *programRef
}

var _ orchestration.ResultPresenter = (*ResultPresenter)(nil)

// PresentComparisonTable sends the comparison results.
func (t *ResultPresenter) PresentComparisonTable(results []orchestration.CalculationResult, _ io.Writer) {
	t.ref.Send(ComparisonResultsMsg{Results: append([]orchestration.CalculationResult(nil), results...)})
}

// PresentResult sends the final result.
func (t *ResultPresenter) PresentResult(result orchestration.CalculationResult, _ orchestration.PresentationOptions, _ io.Writer) {
	t.ref.Send(FinalResultMsg{Result: result})
}

// HandleError sends an ErrorMsg and returns the exit code for err.
func (t *ResultPresenter) HandleError(err error, duration time.Duration, _ io.Writer) int {
	t.ref.Send(ErrorMsg{Err: err, Duration: duration})
	return apperrors.HandleCalculationError(err, duration, io.Discard, plainColors{})
}

type plainColors struct{}

func (plainColors) Red() string    { return "" }
func (plainColors) Yellow() string { return "" }
func (plainColors) Reset() string  { return "" }
