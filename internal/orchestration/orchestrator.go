package orchestration

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/metrics"
)

// ProgressBufferMultiplier defines the buffer size multiplier for the progress
// channel. A larger buffer reduces the likelihood of blocking strategy
// goroutines when the UI is slow to consume updates.
const ProgressBufferMultiplier = 5

// detailedStrategy is implemented by strategies that expose per-rank results.
type detailedStrategy interface {
	ExecuteDetailed(ctx context.Context, data []int, report ProgressFunc) ([]RankResult, error)
}

// ExecuteStrategies runs the strategies concurrently over the same data and
// collects one result per strategy, in input order.
//
// A failing strategy does not cancel the others: its error is stored in its
// CalculationResult. Progress updates are forwarded to progressReporter, which
// has consumed them all when ExecuteStrategies returns.
func ExecuteStrategies(ctx context.Context, strategies []Strategy, data []int, m *metrics.Collector, progressReporter ProgressReporter, out io.Writer) []CalculationResult {
	var g errgroup.Group
	results := make([]CalculationResult, len(strategies))
	progressChan := make(chan ProgressUpdate, len(strategies)*ProgressBufferMultiplier)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go progressReporter.DisplayProgress(&displayWg, progressChan, len(strategies), out)

	for i, s := range strategies {
		idx, strategy := i, s
		g.Go(func() error {
			report := func(v float64) {
				select {
				case progressChan <- ProgressUpdate{StrategyIndex: idx, Value: v}:
				case <-ctx.Done():
				}
			}
			results[idx] = runStrategy(ctx, strategy, data, report)
			m.ObserveRun(strategy.Name(), results[idx].Duration, results[idx].Err)
			return nil
		})
	}

	g.Wait()
	close(progressChan)
	displayWg.Wait()

	return results
}

func runStrategy(ctx context.Context, s Strategy, data []int, report ProgressFunc) CalculationResult {
	res := CalculationResult{Name: s.Name()}
	start := time.Now()
	if d, ok := s.(detailedStrategy); ok {
		res.Parallel = true
		ranks, err := d.ExecuteDetailed(ctx, data, report)
		res.Duration, res.Err = time.Since(start), err
		if err == nil {
			res.Ranks = ranks
			res.Result = ranks[CoordinatorRank].Total
		}
		return res
	}
	var total *big.Int
	total, res.Err = s.Execute(ctx, data, report)
	res.Duration, res.Result = time.Since(start), total
	return res
}

// AnalyzeComparisonResults validates the results of several strategies and
// presents a summary.
//
// It sorts the results by execution time, checks that every successful
// strategy produced the same total, and displays a comparative table.
// Returns apperrors.ExitErrorMismatch when two totals differ.
func AnalyzeComparisonResults(results []CalculationResult, opts PresentationOptions, presenter ResultPresenter, out io.Writer) int {
	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err == nil) != (results[j].Err == nil) {
			return results[i].Err == nil
		}
		return results[i].Duration < results[j].Duration
	})

	var firstValidResult *CalculationResult
	var firstError error
	successCount := 0

	for i := range results {
		if results[i].Err != nil {
			if firstError == nil {
				firstError = results[i].Err
			}
		} else {
			successCount++
			if firstValidResult == nil {
				firstValidResult = &results[i]
			}
		}
	}

	presenter.PresentComparisonTable(results, out)

	if successCount == 0 {
		fmt.Fprintf(out, "\nGlobal Status: Failure. No strategy could complete the sum.\n")
		return presenter.HandleError(firstError, 0, out)
	}

	for _, res := range results {
		if res.Err == nil && res.Result.Cmp(firstValidResult.Result) != 0 {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! An inconsistency was detected between the results of the strategies.\n")
			return apperrors.ExitErrorMismatch
		}
	}

	fmt.Fprintf(out, "\nGlobal Status: Success. All valid results are consistent.\n")
	presenter.PresentResult(*firstValidResult, opts, out)
	return apperrors.ExitSuccess
}
