package fibonacci

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	apperrors "github.com/agbru/fibsum/internal/errors"
)

// ErrNegativeIndex is the cause of the ValidationError returned for n < 0.
var ErrNegativeIndex = errors.New("fibonacci index must be non-negative")

// ctxCheckInterval is the number of summed items between two context checks
// in SumFibonacciContext.
const ctxCheckInterval = 64

// Fibonacci returns F(n), computed by iterating n times from (a, b) = (0, 1)
// with (a, b) := (b, a+b).
func Fibonacci(n int) (*big.Int, error) {
	if n < 0 {
		return nil, invalidIndex(n)
	}
	a, b := new(big.Int), big.NewInt(1)
	for i := 0; i < n; i++ {
		// a+b is written into a, then the pair is swapped, so no temporary
		// allocation happens per step.
		a.Add(a, b)
		a, b = b, a
	}
	return a, nil
}

// SumFibonacci returns the sum of F(v) for every v in values. An empty
// sequence sums to 0. Iteration order does not affect the result.
func SumFibonacci(values []int) (*big.Int, error) {
	var acc Accumulator
	for _, v := range values {
		if err := acc.Add(v); err != nil {
			return nil, err
		}
	}
	return acc.Sum(), nil
}

// SumFibonacciContext is SumFibonacci with periodic cancellation checks.
func SumFibonacciContext(ctx context.Context, values []int) (*big.Int, error) {
	var acc Accumulator
	for i, v := range values {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := acc.Add(v); err != nil {
			return nil, err
		}
	}
	return acc.Sum(), nil
}

func invalidIndex(n int) error {
	return apperrors.ValidationError{
		Field:   "n",
		Message: fmt.Sprintf("got %d, %v", n, ErrNegativeIndex),
		Cause:   ErrNegativeIndex,
	}
}
