package orchestration

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/agbru/fibsum/internal/collective"
	"github.com/agbru/fibsum/internal/collective/mocks"
	apperrors "github.com/agbru/fibsum/internal/errors"
	"github.com/agbru/fibsum/internal/fibonacci"
	"github.com/agbru/fibsum/internal/partition"
)

func sequentialTotal(t *testing.T, data []int) *big.Int {
	t.Helper()
	want, err := fibonacci.SumFibonacci(data)
	if err != nil {
		t.Fatal(err)
	}
	return want
}

// TestDistributedMatchesSequential checks the distributed total for N=10000
// against the sequential total and the closed form F(N+2)-1.
func TestDistributedMatchesSequential(t *testing.T) {
	t.Parallel()
	const n = 10000
	data := partition.WorkRange(n)
	want := sequentialTotal(t, data)

	closed, err := fibonacci.Fibonacci(n + 2)
	if err != nil {
		t.Fatal(err)
	}
	closed.Sub(closed, big.NewInt(1))
	if want.Cmp(closed) != 0 {
		t.Fatal("sequential total differs from F(N+2)-1")
	}

	for _, workers := range []int{1, 4, 16} {
		workers := workers
		t.Run(DistributedStrategy{Workers: workers}.Name(), func(t *testing.T) {
			t.Parallel()
			got, err := DistributedStrategy{Workers: workers}.Execute(context.Background(), data, nil)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got.Cmp(want) != 0 {
				t.Errorf("distributed total with %d workers differs from sequential", workers)
			}
		})
	}
}

func TestDistributed_MoreWorkersThanValues(t *testing.T) {
	t.Parallel()
	data := partition.WorkRange(7)
	ranks, err := DistributedStrategy{Workers: 10}.ExecuteDetailed(context.Background(), data, nil)
	if err != nil {
		t.Fatal(err)
	}
	empty := 0
	for _, r := range ranks {
		if r.Range.Empty() {
			empty++
			if r.Partial.Sign() != 0 {
				t.Errorf("rank %d has an empty partition but partial %s", r.Rank, r.Partial)
			}
		}
	}
	if empty != 9 {
		t.Errorf("got %d empty partitions, want 9", empty)
	}
	if ranks[0].Total.Cmp(sequentialTotal(t, data)) != 0 {
		t.Error("total differs from sequential")
	}
}

func TestDistributed_InvalidWorkerCount(t *testing.T) {
	t.Parallel()
	for _, workers := range []int{0, -3} {
		s := DistributedStrategy{Workers: workers}
		ranks, err := s.ExecuteDetailed(context.Background(), partition.WorkRange(5), nil)
		var verr apperrors.ValidationError
		if !errors.As(err, &verr) || verr.Field != "workers" {
			t.Errorf("Workers=%d: err = %v, want a workers ValidationError", workers, err)
		}
		if ranks != nil {
			t.Errorf("Workers=%d: got %d rank results, want none", workers, len(ranks))
		}
		if _, err := s.Execute(context.Background(), partition.WorkRange(5), nil); !errors.As(err, &verr) {
			t.Errorf("Workers=%d: Execute err = %v", workers, err)
		}
	}
}

func TestRunRank_CoordinatorResult(t *testing.T) {
	t.Parallel()
	data := partition.WorkRange(100)
	ranks, err := DistributedStrategy{Workers: 3}.ExecuteDetailed(context.Background(), data, nil)
	if err != nil {
		t.Fatal(err)
	}
	root := ranks[CoordinatorRank]
	if !root.IsCoordinator() {
		t.Fatal("rank 0 should be the coordinator")
	}
	if len(root.Partials) != 3 {
		t.Fatalf("coordinator holds %d partials, want 3", len(root.Partials))
	}
	for i, r := range ranks {
		if r.Partial.Cmp(root.Partials[i]) != 0 {
			t.Errorf("gathered partial %d differs from the rank's own", i)
		}
		if i != CoordinatorRank && (r.Total != nil || r.Partials != nil) {
			t.Errorf("worker %d should not hold the total", i)
		}
	}
	if Reduce(root.Partials).Cmp(root.Total) != 0 {
		t.Error("Total is not the reduction of Partials")
	}
	want := []partition.Range{{Start: 0, End: 33}, {Start: 33, End: 66}, {Start: 66, End: 100}}
	for i, r := range ranks {
		if r.Range != want[i] {
			t.Errorf("rank %d range = %s, want %s", i, r.Range, want[i])
		}
	}
}

func TestRunRank_PhaseOrder(t *testing.T) {
	t.Parallel()
	const workers = 4
	var mu sync.Mutex
	seen := map[[2]int][]Phase{}
	observer := PhaseObserverFunc(func(e PhaseEvent) {
		mu.Lock()
		defer mu.Unlock()
		key := [2]int{e.Rank, int(e.Role)}
		seen[key] = append(seen[key], e.Phase)
	})

	_, err := DistributedStrategy{Workers: workers, Observer: observer}.Execute(context.Background(), partition.WorkRange(50), nil)
	if err != nil {
		t.Fatal(err)
	}

	for r := 0; r < workers; r++ {
		assertPhases(t, seen[[2]int{r, int(RoleWorker)}], Phases(RoleWorker))
		if r != CoordinatorRank {
			if got := seen[[2]int{r, int(RoleCoordinator)}]; got != nil {
				t.Errorf("rank %d reported coordinator phases %v", r, got)
			}
		}
	}
	assertPhases(t, seen[[2]int{CoordinatorRank, int(RoleCoordinator)}], Phases(RoleCoordinator))
}

func assertPhases(t *testing.T, got, want []Phase) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phases = %v, want %v", got, want)
		}
	}
}

func TestRunRank_FailingRankAbortsRun(t *testing.T) {
	t.Parallel()
	data := partition.WorkRange(12)
	data[10] = -1 // lands in the last rank's partition

	_, err := DistributedStrategy{Workers: 3}.Execute(context.Background(), data, nil)
	var validationErr apperrors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, fibonacci.ErrNegativeIndex) {
		t.Errorf("expected ErrNegativeIndex in chain, got %v", err)
	}
	var calcErr apperrors.CalculationError
	if !errors.As(err, &calcErr) || !strings.Contains(calcErr.Error(), "rank 2 partition [8,12)") {
		t.Errorf("expected a CalculationError naming the partition, got %v", err)
	}
}

func TestRunRank_BroadcastFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	comm := mocks.NewMockCommunicator(ctrl)
	comm.EXPECT().Rank().Return(1).AnyTimes()
	comm.EXPECT().Size().Return(2).AnyTimes()
	comm.EXPECT().Broadcast(gomock.Any(), CoordinatorRank, gomock.Nil()).
		Return(nil, errors.New("link down"))

	_, err := RunRank(context.Background(), comm, nil, RankOptions{})
	var collectiveErr apperrors.CollectiveError
	if !errors.As(err, &collectiveErr) {
		t.Fatalf("expected CollectiveError, got %v", err)
	}
	if collectiveErr.Op != collective.OpBroadcast || collectiveErr.Rank != 1 {
		t.Errorf("got %+v", collectiveErr)
	}
}

func TestRunRank_GatherFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	comm := mocks.NewMockCommunicator(ctrl)
	comm.EXPECT().Rank().Return(1).AnyTimes()
	comm.EXPECT().Size().Return(2).AnyTimes()
	payload, _ := collective.IntsCodec{}.Encode([]int{1, 2, 3, 4})
	gomock.InOrder(
		comm.EXPECT().Broadcast(gomock.Any(), CoordinatorRank, gomock.Any()).Return(payload, nil),
		comm.EXPECT().Gather(gomock.Any(), CoordinatorRank, []byte("5")).
			Return(nil, context.DeadlineExceeded),
	)

	res, err := RunRank(context.Background(), comm, nil, RankOptions{})
	var collectiveErr apperrors.CollectiveError
	if !errors.As(err, &collectiveErr) || collectiveErr.Op != collective.OpGather {
		t.Fatalf("expected gather CollectiveError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause lost: %v", err)
	}
	if res.Partial == nil || res.Partial.Int64() != 5 {
		t.Errorf("partial = %v, want F(3)+F(4) = 5", res.Partial)
	}
}

func TestRunRank_IncompleteGatherIsRejected(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	comm := mocks.NewMockCommunicator(ctrl)
	comm.EXPECT().Rank().Return(0).AnyTimes()
	comm.EXPECT().Size().Return(2).AnyTimes()
	comm.EXPECT().Broadcast(gomock.Any(), CoordinatorRank, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int, p []byte) ([]byte, error) { return p, nil })
	comm.EXPECT().Gather(gomock.Any(), CoordinatorRank, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int, p []byte) ([][]byte, error) { return [][]byte{p}, nil })

	res, err := RunRank(context.Background(), comm, []int{1, 2, 3}, RankOptions{})
	if err == nil {
		t.Fatal("expected an error when fewer than Size partial sums arrive")
	}
	if res.Total != nil {
		t.Error("coordinator must not reduce before all partial sums arrived")
	}
}

func TestRunRank_ContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w, err := collective.NewWorld(2)
	if err != nil {
		t.Fatal(err)
	}
	// Rank 1 waits for a broadcast that never comes.
	_, err = RunRank(ctx, w.Comm(1), nil, RankOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
