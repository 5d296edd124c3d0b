package orchestration

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/fibsum/internal/collective"
	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/fibonacci"
	"github.com/agbru/fibsum/internal/logging"
	"github.com/agbru/fibsum/internal/metrics"
	"github.com/agbru/fibsum/internal/partition"
)

// CoordinatorRank is the rank that owns the work range and reduces the result.
const CoordinatorRank = 0

const tracerName = "github.com/agbru/fibsum/internal/orchestration"

// RankOptions are the optional collaborators of RunRank.
type RankOptions struct {
	Logger   logging.Logger
	Metrics  *metrics.Collector
	Observer PhaseObserver
	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

func (o RankOptions) withDefaults() RankOptions {
	if o.Logger == nil {
		o.Logger = logging.NopLogger{}
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
	return o
}

// RankResult is what one rank observed during a run.
type RankResult struct {
	Rank    int
	Size    int
	Range   partition.Range
	Partial *big.Int
	// Compute is the time spent summing the local partition.
	Compute time.Duration
	// Partials and Total are only set at the coordinator.
	Partials []*big.Int
	Total    *big.Int
}

// IsCoordinator reports whether the result comes from the coordinator rank.
func (r RankResult) IsCoordinator() bool { return r.Rank == CoordinatorRank }

// RunRank executes one rank's part of the distributed sum over comm.
//
// The coordinator broadcasts data to every rank; data is ignored elsewhere.
// Each rank sums the Fibonacci values of its partition of the broadcast range
// and the partial sums are gathered at the coordinator, which reduces them
// once all comm.Size() values have arrived. Any collective failure aborts the
// rank with an apperrors.CollectiveError.
func RunRank(ctx context.Context, comm collective.Communicator, data []int, opts RankOptions) (RankResult, error) {
	opts = opts.withDefaults()
	rank, size := comm.Rank(), comm.Size()
	res := RankResult{Rank: rank, Size: size}

	ctx, span := opts.Tracer.Start(ctx, "fibsum.rank", trace.WithAttributes(
		attribute.Int("fibsum.rank", rank),
		attribute.Int("fibsum.size", size),
	))
	defer span.End()

	err := runRank(ctx, comm, data, opts, &res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		opts.Logger.Debug("rank aborted", logging.Int("rank", rank), logging.Err(err))
		return res, err
	}
	return res, nil
}

func runRank(ctx context.Context, comm collective.Communicator, data []int, opts RankOptions, res *RankResult) error {
	rank, size := res.Rank, res.Size
	coordinator := rank == CoordinatorRank
	worker := NewLifecycle(rank, RoleWorker, opts.Observer)
	var coord *Lifecycle
	if coordinator {
		coord = NewLifecycle(rank, RoleCoordinator, opts.Observer)
	}

	opts.Logger.Info(fmt.Sprintf("Parallel processing -> Process number: %d of %d processes", rank, size-1),
		logging.Int("rank", rank), logging.Int("size", size))

	work, err := traced(ctx, opts.Tracer, "fibsum.broadcast", func(ctx context.Context) ([]int, error) {
		return collective.BroadcastValue(ctx, comm, CoordinatorRank, data, collective.IntsCodec{})
	})
	if err != nil {
		return err
	}
	if coordinator {
		if err := coord.Advance(PhaseBroadcastRange); err != nil {
			return err
		}
	}
	if err := worker.Advance(PhaseReceivedRange); err != nil {
		return err
	}

	rng, err := partition.Partition(len(work), size, rank)
	if err != nil {
		return err
	}
	res.Range = rng
	local := rng.Slice(work)
	if err := worker.Advance(PhaseComputedPartition); err != nil {
		return err
	}

	start := time.Now()
	partial, err := traced(ctx, opts.Tracer, "fibsum.compute", func(ctx context.Context) (*big.Int, error) {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("fibsum.partition.len", len(local)))
		return fibonacci.SumFibonacciContext(ctx, local)
	})
	if err != nil {
		if apperrors.IsContextError(err) {
			return err
		}
		return apperrors.CalculationError{Cause: apperrors.WrapError(err, "rank %d partition %s", rank, rng)}
	}
	res.Compute = time.Since(start)
	res.Partial = partial
	opts.Metrics.ObservePartition(len(local), res.Compute)
	opts.Logger.Debug("partial sum computed",
		logging.Int("rank", rank), logging.String("range", rng.String()),
		logging.Int("bits", partial.BitLen()))
	if err := worker.Advance(PhaseComputedPartialSum); err != nil {
		return err
	}

	if coordinator {
		if err := coord.Advance(PhaseAwaitingPartialSums); err != nil {
			return err
		}
	}
	partials, err := traced(ctx, opts.Tracer, "fibsum.gather", func(ctx context.Context) ([]*big.Int, error) {
		return collective.GatherValues(ctx, comm, CoordinatorRank, partial, collective.BigIntCodec{})
	})
	if err != nil {
		return err
	}
	if err := worker.Advance(PhaseReported); err != nil {
		return err
	}
	if !coordinator {
		return nil
	}

	if len(partials) != size {
		return fmt.Errorf("gather returned %d partial sums, want %d", len(partials), size)
	}
	if err := coord.Advance(PhaseAllReceived); err != nil {
		return err
	}
	_, span := opts.Tracer.Start(ctx, "fibsum.reduce")
	res.Partials = partials
	res.Total = Reduce(partials)
	span.End()
	if err := coord.Advance(PhaseReduced); err != nil {
		return err
	}
	opts.Metrics.SetSumDigits(len(res.Total.String()))
	return coord.Advance(PhaseDone)
}

// traced runs fn inside a child span named name.
func traced[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	v, err := fn(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}
