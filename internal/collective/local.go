package collective

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// World is an in-process group of ranks linked by channels. Each rank is
// driven by its own goroutine through the Communicator returned by Comm.
type World struct {
	size   int
	bcast  []chan Envelope
	gather []chan Envelope
	comms  []*LocalComm
}

// NewWorld creates a group of size ranks.
func NewWorld(size int) (*World, error) {
	if size < 1 {
		return nil, fmt.Errorf("world size must be at least 1, got %d", size)
	}
	w := &World{
		size:   size,
		bcast:  make([]chan Envelope, size),
		gather: make([]chan Envelope, size),
		comms:  make([]*LocalComm, size),
	}
	for r := 0; r < size; r++ {
		w.bcast[r] = make(chan Envelope, 1)
		w.gather[r] = make(chan Envelope, size)
		w.comms[r] = &LocalComm{world: w, rank: r}
	}
	return w, nil
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Comm returns the communicator of the given rank.
func (w *World) Comm(rank int) *LocalComm { return w.comms[rank] }

// Run starts one goroutine per rank of a new World and waits for all of them.
// The first rank to fail cancels the context of the others, whose pending
// collectives then fail too; Run returns that first error.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c Communicator) error) error {
	w, err := NewWorld(size)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for r := 0; r < size; r++ {
		comm := w.Comm(r)
		g.Go(func() error {
			return fn(ctx, comm)
		})
	}
	return g.Wait()
}

// LocalComm is one rank of a World. It must only be used by one goroutine.
type LocalComm struct {
	world     *World
	rank      int
	bcastSeq  uint64
	gatherSeq uint64
	bcastBox  Mailbox
	gatherBox Mailbox
}

var _ Communicator = (*LocalComm)(nil)

// Rank implements Communicator.
func (c *LocalComm) Rank() int { return c.rank }

// Size implements Communicator.
func (c *LocalComm) Size() int { return c.world.size }

// Broadcast implements Communicator.
func (c *LocalComm) Broadcast(ctx context.Context, root int, payload []byte) ([]byte, error) {
	if err := ValidateRoot(root, c.world.size); err != nil {
		return nil, Fail(OpBroadcast, c.rank, err)
	}
	seq := c.bcastSeq
	c.bcastSeq++

	if c.rank == root {
		for r := 0; r < c.world.size; r++ {
			if r == root {
				continue
			}
			if err := send(ctx, c.world.bcast[r], Envelope{Seq: seq, Rank: root, Payload: clone(payload)}); err != nil {
				return nil, Fail(OpBroadcast, c.rank, err)
			}
		}
		return clone(payload), nil
	}

	env, err := c.bcastBox.Take(ctx, seq, receiver(c.world.bcast[c.rank]))
	if err != nil {
		return nil, Fail(OpBroadcast, c.rank, err)
	}
	return env.Payload, nil
}

// Gather implements Communicator.
func (c *LocalComm) Gather(ctx context.Context, root int, payload []byte) ([][]byte, error) {
	if err := ValidateRoot(root, c.world.size); err != nil {
		return nil, Fail(OpGather, c.rank, err)
	}
	seq := c.gatherSeq
	c.gatherSeq++

	if c.rank != root {
		err := send(ctx, c.world.gather[root], Envelope{Seq: seq, Rank: c.rank, Payload: clone(payload)})
		return nil, Fail(OpGather, c.rank, err)
	}

	out, err := Collect(ctx, &c.gatherBox, seq, c.world.size, root, payload, receiver(c.world.gather[root]))
	if err != nil {
		return nil, Fail(OpGather, c.rank, err)
	}
	return out, nil
}

func send(ctx context.Context, ch chan<- Envelope, env Envelope) error {
	select {
	case ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receiver(ch <-chan Envelope) RecvFunc {
	return func(ctx context.Context) (Envelope, error) {
		select {
		case env := <-ch:
			return env, nil
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		}
	}
}
