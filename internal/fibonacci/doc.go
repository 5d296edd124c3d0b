// Package fibonacci implements the accumulator at the leaf of fibsum: the
// iterative, constant-memory computation of F(n) with arbitrary precision and
// the sum of F(v) over a sequence of indices.
//
// The convention is F(0) = 0 and F(1) = 1. Negative indices are rejected with
// an apperrors.ValidationError wrapping ErrNegativeIndex.
package fibonacci
