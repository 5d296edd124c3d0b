package orchestration

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/agbru/fibsum/internal/collective"
	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/fibonacci"
	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/metrics"
)

// Strategy computes the sum of the Fibonacci values of data.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, data []int, report ProgressFunc) (*big.Int, error)
}

// Mode names accepted by StrategiesFor.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
	ModeAll        = "all"
)

// progressSteps is the number of progress reports a sequential run emits.
const progressSteps = 100

// SequentialStrategy sums every value in the calling goroutine.
type SequentialStrategy struct{}

// Name implements Strategy.
func (SequentialStrategy) Name() string { return "Sequential" }

// Execute implements Strategy.
func (SequentialStrategy) Execute(ctx context.Context, data []int, report ProgressFunc) (*big.Int, error) {
	var acc fibonacci.Accumulator
	step := len(data)/progressSteps + 1
	for i, n := range data {
		if i%step == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if report != nil {
				report(float64(i) / float64(len(data)))
			}
		}
		if err := acc.Add(n); err != nil {
			return nil, err
		}
	}
	if report != nil {
		report(1)
	}
	return acc.Sum(), nil
}

// DistributedStrategy runs the broadcast / partition / gather / reduce round
// trip over an in-process world of Workers ranks.
type DistributedStrategy struct {
	Workers  int
	Logger   logging.Logger
	Metrics  *metrics.Collector
	Observer PhaseObserver
}

// Name implements Strategy.
func (s DistributedStrategy) Name() string {
	return fmt.Sprintf("Parallel (%d workers)", s.Workers)
}

// Execute implements Strategy.
func (s DistributedStrategy) Execute(ctx context.Context, data []int, report ProgressFunc) (*big.Int, error) {
	ranks, err := s.ExecuteDetailed(ctx, data, report)
	if err != nil {
		return nil, err
	}
	return ranks[CoordinatorRank].Total, nil
}

// ExecuteDetailed is Execute returning every rank's result. Progress is the
// fraction of ranks that reported their partial sum.
func (s DistributedStrategy) ExecuteDetailed(ctx context.Context, data []int, report ProgressFunc) ([]RankResult, error) {
	if s.Workers < 1 {
		return nil, apperrors.ValidationError{
			Field:   "workers",
			Message: fmt.Sprintf("must be at least 1, got %d", s.Workers),
		}
	}
	results := make([]RankResult, s.Workers)
	var reported atomic.Int64
	observer := PhaseObserverFunc(func(e PhaseEvent) {
		if s.Observer != nil {
			s.Observer.OnPhase(e)
		}
		if report != nil && e.Role == RoleWorker && e.Phase == PhaseReported {
			report(float64(reported.Add(1)) / float64(s.Workers))
		}
	})
	opts := RankOptions{Logger: s.Logger, Metrics: s.Metrics, Observer: observer}

	err := collective.Run(ctx, s.Workers, func(ctx context.Context, comm collective.Communicator) error {
		var input []int
		if comm.Rank() == CoordinatorRank {
			input = data
		}
		res, err := RunRank(ctx, metrics.Instrument(comm, s.Metrics), input, opts)
		results[comm.Rank()] = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// StrategyOptions are shared by the strategies built by StrategiesFor.
type StrategyOptions struct {
	Workers  int
	Logger   logging.Logger
	Metrics  *metrics.Collector
	Observer PhaseObserver
}

// StrategiesFor returns the strategies selected by mode, sequential first.
// An unknown mode yields nil.
func StrategiesFor(mode string, opts StrategyOptions) []Strategy {
	distributed := DistributedStrategy{
		Workers:  opts.Workers,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		Observer: opts.Observer,
	}
	switch mode {
	case ModeSequential:
		return []Strategy{SequentialStrategy{}}
	case ModeParallel:
		return []Strategy{distributed}
	case ModeAll:
		return []Strategy{SequentialStrategy{}, distributed}
	default:
		return nil
	}
}
