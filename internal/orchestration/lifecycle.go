package orchestration

import (
	"errors"
	"fmt"
)

// Role is the part a rank plays in a run. Every rank is a worker; the
// coordinator rank is also a coordinator.
type Role int

const (
	RoleWorker Role = iota
	RoleCoordinator
)

func (r Role) String() string {
	switch r {
	case RoleWorker:
		return "worker"
	case RoleCoordinator:
		return "coordinator"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Phase is a step of a role's lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota

	// Worker phases.
	PhaseReceivedRange
	PhaseComputedPartition
	PhaseComputedPartialSum
	PhaseReported

	// Coordinator phases.
	PhaseBroadcastRange
	PhaseAwaitingPartialSums
	PhaseAllReceived
	PhaseReduced
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseIdle:                "idle",
	PhaseReceivedRange:       "received_range",
	PhaseComputedPartition:   "computed_partition",
	PhaseComputedPartialSum:  "computed_partial_sum",
	PhaseReported:            "reported",
	PhaseBroadcastRange:      "broadcast_range",
	PhaseAwaitingPartialSums: "awaiting_partial_sums",
	PhaseAllReceived:         "all_received",
	PhaseReduced:             "reduced",
	PhaseDone:                "done",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

var (
	workerPhases      = []Phase{PhaseIdle, PhaseReceivedRange, PhaseComputedPartition, PhaseComputedPartialSum, PhaseReported}
	coordinatorPhases = []Phase{PhaseIdle, PhaseBroadcastRange, PhaseAwaitingPartialSums, PhaseAllReceived, PhaseReduced, PhaseDone}
)

// Phases returns the ordered lifecycle of role.
func Phases(role Role) []Phase {
	if role == RoleCoordinator {
		return append([]Phase(nil), coordinatorPhases...)
	}
	return append([]Phase(nil), workerPhases...)
}

// PhaseEvent reports that a rank entered a phase.
type PhaseEvent struct {
	Rank  int
	Role  Role
	Phase Phase
}

// PhaseObserver is notified of every phase transition. It is called from the
// rank's goroutine and must be safe for concurrent use when shared by ranks.
type PhaseObserver interface {
	OnPhase(PhaseEvent)
}

// PhaseObserverFunc adapts a function to PhaseObserver.
type PhaseObserverFunc func(PhaseEvent)

// OnPhase calls f.
func (f PhaseObserverFunc) OnPhase(e PhaseEvent) { f(e) }

// ErrPhaseOrder is returned when a lifecycle is advanced out of order.
var ErrPhaseOrder = errors.New("phase transition out of order")

// Lifecycle tracks one role of one rank. Transitions are linear: each phase
// is entered exactly once, in order, and the terminal phase ends the lifecycle.
type Lifecycle struct {
	rank     int
	role     Role
	phases   []Phase
	pos      int
	observer PhaseObserver
}

// NewLifecycle starts a lifecycle in PhaseIdle and reports it to observer,
// which may be nil.
func NewLifecycle(rank int, role Role, observer PhaseObserver) *Lifecycle {
	l := &Lifecycle{rank: rank, role: role, phases: Phases(role), observer: observer}
	l.notify()
	return l
}

// Current returns the phase the lifecycle is in.
func (l *Lifecycle) Current() Phase { return l.phases[l.pos] }

// Terminal reports whether the last phase was reached.
func (l *Lifecycle) Terminal() bool { return l.pos == len(l.phases)-1 }

// Advance moves to next, which must be the successor of the current phase.
func (l *Lifecycle) Advance(next Phase) error {
	if l.Terminal() || l.phases[l.pos+1] != next {
		return fmt.Errorf("%w: %s %d cannot go from %s to %s",
			ErrPhaseOrder, l.role, l.rank, l.Current(), next)
	}
	l.pos++
	l.notify()
	return nil
}

func (l *Lifecycle) notify() {
	if l.observer != nil {
		l.observer.OnPhase(PhaseEvent{Rank: l.rank, Role: l.role, Phase: l.Current()})
	}
}
