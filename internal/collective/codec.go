package collective

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Codec converts values to and from collective payloads.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(b []byte) (T, error)
}

// IntsCodec encodes integer sequences (work ranges) as JSON arrays.
type IntsCodec struct{}

// Encode implements Codec.
func (IntsCodec) Encode(v []int) ([]byte, error) {
	if v == nil {
		v = []int{}
	}
	return json.Marshal(v)
}

// Decode implements Codec.
func (IntsCodec) Decode(b []byte) ([]int, error) {
	var v []int
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode work range: %w", err)
	}
	return v, nil
}

// BigIntCodec encodes arbitrary-precision integers in base 10.
type BigIntCodec struct{}

// Encode implements Codec.
func (BigIntCodec) Encode(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, errors.New("encode partial sum: nil value")
	}
	return v.MarshalText()
}

// Decode implements Codec.
func (BigIntCodec) Decode(b []byte) (*big.Int, error) {
	v := new(big.Int)
	if err := v.UnmarshalText(b); err != nil {
		return nil, fmt.Errorf("decode partial sum: %w", err)
	}
	return v, nil
}

// BroadcastValue broadcasts v from root. Only the root's v is encoded; every
// rank returns the decoded root value.
func BroadcastValue[T any](ctx context.Context, c Communicator, root int, v T, codec Codec[T]) (T, error) {
	var zero T
	var payload []byte
	if c.Rank() == root {
		b, err := codec.Encode(v)
		if err != nil {
			return zero, Fail(OpBroadcast, c.Rank(), err)
		}
		payload = b
	}
	out, err := c.Broadcast(ctx, root, payload)
	if err != nil {
		return zero, Fail(OpBroadcast, c.Rank(), err)
	}
	decoded, err := codec.Decode(out)
	if err != nil {
		return zero, Fail(OpBroadcast, c.Rank(), err)
	}
	return decoded, nil
}

// GatherValues gathers one v per rank at root. The root receives the decoded
// values in rank order; other ranks receive nil.
func GatherValues[T any](ctx context.Context, c Communicator, root int, v T, codec Codec[T]) ([]T, error) {
	payload, err := codec.Encode(v)
	if err != nil {
		return nil, Fail(OpGather, c.Rank(), err)
	}
	raw, err := c.Gather(ctx, root, payload)
	if err != nil {
		return nil, Fail(OpGather, c.Rank(), err)
	}
	if c.Rank() != root {
		return nil, nil
	}
	values := make([]T, len(raw))
	for i, b := range raw {
		if values[i], err = codec.Decode(b); err != nil {
			return nil, Fail(OpGather, c.Rank(), fmt.Errorf("rank %d: %w", i, err))
		}
	}
	return values, nil
}
