package orchestration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNondeterministic is returned by Repeat when two runs disagree.
var ErrNondeterministic = errors.New("repeated runs produced different totals")

// RepeatStats summarizes repeated runs of one strategy.
type RepeatStats struct {
	Name      string
	Runs      int
	Total     *big.Int
	Durations []time.Duration
	Mean      time.Duration
	StdDev    time.Duration
	Min       time.Duration
	Max       time.Duration
}

// Repeat runs s times times over data and checks that every run returns the
// same total. Timing statistics are computed over the elapsed seconds.
func Repeat(ctx context.Context, s Strategy, data []int, times int) (RepeatStats, error) {
	if times < 1 {
		return RepeatStats{}, fmt.Errorf("repeat count must be at least 1, got %d", times)
	}
	stats := RepeatStats{Name: s.Name(), Runs: times, Durations: make([]time.Duration, 0, times)}
	seconds := make([]float64, 0, times)
	for i := 0; i < times; i++ {
		start := time.Now()
		total, err := s.Execute(ctx, data, nil)
		elapsed := time.Since(start)
		if err != nil {
			return stats, fmt.Errorf("run %d of %s: %w", i+1, s.Name(), err)
		}
		if stats.Total == nil {
			stats.Total = total
		} else if stats.Total.Cmp(total) != 0 {
			return stats, fmt.Errorf("%w: run %d of %s", ErrNondeterministic, i+1, s.Name())
		}
		stats.Durations = append(stats.Durations, elapsed)
		seconds = append(seconds, elapsed.Seconds())
	}

	mean, std := stat.MeanStdDev(seconds, nil)
	if math.IsNaN(std) {
		std = 0
	}
	stats.Mean = toDuration(mean)
	stats.StdDev = toDuration(std)
	stats.Min = toDuration(floats.Min(seconds))
	stats.Max = toDuration(floats.Max(seconds))
	return stats, nil
}

func toDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
