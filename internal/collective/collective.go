//go:generate mockgen -source=collective.go -destination=mocks/mock_collective.go -package=mocks

package collective

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/agbru/fibsum/internal/errors"
)

// Collective operation names, as reported in CollectiveError.Op.
const (
	OpBroadcast = "broadcast"
	OpGather    = "gather"
)

var (
	// ErrRootOutOfRange is returned when a collective names a root outside [0, size).
	ErrRootOutOfRange = errors.New("root rank out of range")
	// ErrUnknownRank is returned when a message claims a rank outside [0, size).
	ErrUnknownRank = errors.New("message from unknown rank")
	// ErrDuplicateRank is returned when a gather receives two values from one rank.
	ErrDuplicateRank = errors.New("duplicate message from rank")
	// ErrStaleMessage is returned when a message belongs to an already completed collective.
	ErrStaleMessage = errors.New("stale collective message")
	// ErrClosed is returned when the underlying link was closed.
	ErrClosed = errors.New("communicator closed")
)

// Communicator is one rank's view of the group.
type Communicator interface {
	// Rank returns this participant's rank, constant for the lifetime of the run.
	Rank() int
	// Size returns the number of ranks in the group.
	Size() int
	// Broadcast sends payload from root to every rank and returns the root's
	// payload at every rank, including the root. Non-root payloads are ignored.
	Broadcast(ctx context.Context, root int, payload []byte) ([]byte, error)
	// Gather collects one payload per rank at root, in rank order. Non-root
	// ranks receive nil.
	Gather(ctx context.Context, root int, payload []byte) ([][]byte, error)
}

// Envelope is a payload tagged with its sender and collective sequence number.
type Envelope struct {
	Seq     uint64
	Rank    int
	Payload []byte
}

// Fail wraps err as the CollectiveError reported by rank for op.
// Errors that already are CollectiveErrors are returned unchanged.
func Fail(op string, rank int, err error) error {
	if err == nil {
		return nil
	}
	var collectiveErr apperrors.CollectiveError
	if errors.As(err, &collectiveErr) {
		return err
	}
	return apperrors.CollectiveError{Op: op, Rank: rank, Cause: err}
}

// ValidateRoot checks that root names a rank of a group of the given size.
func ValidateRoot(root, size int) error {
	if root < 0 || root >= size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRootOutOfRange, root, size)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
