package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/fibsum/internal/orchestration"
)

const (
	// TruncationLimit is the digit threshold from which a total is truncated
	// in the detailed output to avoid cluttering the terminal.
	TruncationLimit = 100
	// DisplayEdges specifies the number of digits to display at the beginning
	// and end of a truncated number.
	DisplayEdges = 25
	// ProgressRefreshRate defines the refresh frequency of the progress bar.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth defines the width in characters of the progress bar.
	ProgressBarWidth = 40
)

// Spinner abstracts a terminal spinner so that DisplayProgress can be tested
// without a terminal.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to Spinner.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// ProgressState holds the latest progress of each running strategy.
type ProgressState struct {
	progresses []float64
}

// NewProgressState tracks numStrategies strategies.
func NewProgressState(numStrategies int) *ProgressState {
	return &ProgressState{progresses: make([]float64, numStrategies)}
}

// Update records value for the strategy at index. Out of range indices are ignored.
func (ps *ProgressState) Update(index int, value float64) {
	if index >= 0 && index < len(ps.progresses) {
		ps.progresses[index] = value
	}
}

// CalculateAverage returns the mean progress across strategies, in [0, 1].
func (ps *ProgressState) CalculateAverage() float64 {
	if len(ps.progresses) == 0 {
		return 0.0
	}
	var total float64
	for _, p := range ps.progresses {
		total += p
	}
	return total / float64(len(ps.progresses))
}

// progressBar renders progress in [0, 1] as a bar of length characters.
func progressBar(progress float64, length int) string {
	progress = min(max(progress, 0.0), 1.0)
	count := int(progress * float64(length))
	var builder strings.Builder
	builder.Grow(length * 3)
	for i := 0; i < length; i++ {
		if i < count {
			builder.WriteRune('█')
		} else {
			builder.WriteRune('░')
		}
	}
	return builder.String()
}

func progressSuffix(avg float64, numStrategies int) string {
	label := "Summing"
	if numStrategies > 1 {
		label = fmt.Sprintf("Summing (%d strategies)", numStrategies)
	}
	return fmt.Sprintf(" %s %6.2f%% [%s]", label, avg*100, progressBar(avg, ProgressBarWidth))
}

// DisplayProgress shows a spinner with the average progress of the running
// strategies until progressChan is closed, then calls wg.Done.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan orchestration.ProgressUpdate, numStrategies int, out io.Writer) {
	defer wg.Done()
	if numStrategies <= 0 {
		for range progressChan {
		}
		return
	}

	state := NewProgressState(numStrategies)
	s := newSpinner(spinner.WithWriter(out))
	s.UpdateSuffix(progressSuffix(0, numStrategies))
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.UpdateSuffix(progressSuffix(state.CalculateAverage(), numStrategies))
				return
			}
			state.Update(update.StrategyIndex, update.Value)
		case <-ticker.C:
			s.UpdateSuffix(progressSuffix(state.CalculateAverage(), numStrategies))
		}
	}
}
