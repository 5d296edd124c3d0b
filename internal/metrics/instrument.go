package metrics

import (
	"context"
	"time"

	"github.com/agbru/fibsum/internal/collective"
)

// InstrumentedComm records every collective call of the wrapped communicator.
type InstrumentedComm struct {
	collective.Communicator
	metrics *Collector
}

// Instrument wraps comm. With a nil collector comm is returned unchanged.
func Instrument(comm collective.Communicator, c *Collector) collective.Communicator {
	if c == nil {
		return comm
	}
	return &InstrumentedComm{Communicator: comm, metrics: c}
}

// Broadcast implements collective.Communicator.
func (i *InstrumentedComm) Broadcast(ctx context.Context, root int, payload []byte) ([]byte, error) {
	start := time.Now()
	out, err := i.Communicator.Broadcast(ctx, root, payload)
	i.metrics.ObserveCollective(collective.OpBroadcast, len(out), time.Since(start), err)
	return out, err
}

// Gather implements collective.Communicator.
func (i *InstrumentedComm) Gather(ctx context.Context, root int, payload []byte) ([][]byte, error) {
	start := time.Now()
	out, err := i.Communicator.Gather(ctx, root, payload)
	i.metrics.ObserveCollective(collective.OpGather, len(payload), time.Since(start), err)
	return out, err
}
