package calibration

import (
	"context"
	"errors"

	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/orchestration"
)

// ErrNoCandidate is returned when no worker count completed.
var ErrNoCandidate = errors.New("no worker count completed the calibration")

// Result is the measurement of one worker count.
type Result struct {
	Workers int
	Stats   orchestration.RepeatStats
	Err     error
}

// Options configures a calibration run.
type Options struct {
	// Runs is the number of repetitions per worker count.
	Runs   int
	Logger logging.Logger
}

// Calibrate runs the distributed strategy over data for every count and
// returns the measurements together with the count of lowest mean time.
// A canceled context stops the calibration with ctx.Err().
func Calibrate(ctx context.Context, data []int, counts []int, opts Options) ([]Result, int, error) {
	if opts.Runs < 1 {
		opts.Runs = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}

	results := make([]Result, 0, len(counts))
	best := -1
	for _, workers := range counts {
		s := orchestration.DistributedStrategy{Workers: workers, Logger: opts.Logger}
		stats, err := orchestration.Repeat(ctx, s, data, opts.Runs)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, 0, ctxErr
		}
		results = append(results, Result{Workers: workers, Stats: stats, Err: err})
		if err != nil {
			opts.Logger.Error("calibration run failed", err, logging.Int("workers", workers))
			continue
		}
		opts.Logger.Debug("calibration run",
			logging.Int("workers", workers), logging.Float64("mean_seconds", stats.Mean.Seconds()))
		if best < 0 || stats.Mean < results[best].Stats.Mean {
			best = len(results) - 1
		}
	}
	if best < 0 {
		return results, 0, ErrNoCandidate
	}
	return results, results[best].Workers, nil
}
