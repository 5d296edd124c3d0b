package collective

import (
	"context"
	"fmt"
)

// RecvFunc blocks until the next envelope arrives on a link.
type RecvFunc func(ctx context.Context) (Envelope, error)

// Mailbox matches incoming envelopes to collective sequence numbers. Ranks
// may run ahead by one or more collectives, so envelopes for a later
// sequence are kept until the matching call asks for them.
//
// A Mailbox is owned by a single rank and is not safe for concurrent use.
type Mailbox struct {
	pending map[uint64][]Envelope
}

// Take returns the next envelope for seq, pulling from recv as needed.
func (m *Mailbox) Take(ctx context.Context, seq uint64, recv RecvFunc) (Envelope, error) {
	if queued := m.pending[seq]; len(queued) > 0 {
		env := queued[0]
		if len(queued) == 1 {
			delete(m.pending, seq)
		} else {
			m.pending[seq] = queued[1:]
		}
		return env, nil
	}
	for {
		env, err := recv(ctx)
		if err != nil {
			return Envelope{}, err
		}
		switch {
		case env.Seq == seq:
			return env, nil
		case env.Seq < seq:
			return Envelope{}, fmt.Errorf("%w: seq %d from rank %d while waiting for %d",
				ErrStaleMessage, env.Seq, env.Rank, seq)
		default:
			if m.pending == nil {
				m.pending = make(map[uint64][]Envelope)
			}
			m.pending[env.Seq] = append(m.pending[env.Seq], env)
		}
	}
}

// Pending returns the number of envelopes kept for later sequences.
func (m *Mailbox) Pending() int {
	n := 0
	for _, q := range m.pending {
		n += len(q)
	}
	return n
}

// Collect assembles the result of a gather at root: own is the root's payload,
// and size-1 further envelopes are taken from the mailbox for seq.
func Collect(ctx context.Context, m *Mailbox, seq uint64, size, root int, own []byte, recv RecvFunc) ([][]byte, error) {
	out := make([][]byte, size)
	seen := make([]bool, size)
	out[root], seen[root] = clone(own), true
	for received := 1; received < size; received++ {
		env, err := m.Take(ctx, seq, recv)
		if err != nil {
			return nil, err
		}
		if env.Rank < 0 || env.Rank >= size {
			return nil, fmt.Errorf("%w: %d", ErrUnknownRank, env.Rank)
		}
		if seen[env.Rank] {
			return nil, fmt.Errorf("%w %d", ErrDuplicateRank, env.Rank)
		}
		out[env.Rank], seen[env.Rank] = env.Payload, true
	}
	return out, nil
}
