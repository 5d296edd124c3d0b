// Package partition splits a work range of a fixed length into contiguous,
// disjoint per-rank chunks. The last rank absorbs the remainder of the
// integer division, so partitions may differ in size by up to workerCount-1
// items and may be empty when there are more workers than items.
package partition

import (
	"fmt"

	apperrors "github.com/agbru/fibsum/internal/errors"
)

// Range is a half-open interval [Start, End) of indices into a work range.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by r.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether r covers no index.
func (r Range) Empty() bool { return r.Start == r.End }

// String formats r as "[start,end)".
func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Slice returns the sub-slice of values covered by r. It panics if r does not
// fit in values, like a regular slice expression.
func (r Range) Slice(values []int) []int {
	return values[r.Start:r.End]
}

// Partition returns the range assigned to rank among workerCount workers for
// a work range of totalLength items.
func Partition(totalLength, workerCount, rank int) (Range, error) {
	if err := validate(totalLength, workerCount); err != nil {
		return Range{}, err
	}
	if rank < 0 || rank >= workerCount {
		return Range{}, apperrors.ValidationError{
			Field:   "rank",
			Message: fmt.Sprintf("%d is outside [0, %d)", rank, workerCount),
		}
	}
	return compute(totalLength, workerCount, rank), nil
}

// All returns the partitions of every rank, in rank order.
func All(totalLength, workerCount int) ([]Range, error) {
	if err := validate(totalLength, workerCount); err != nil {
		return nil, err
	}
	ranges := make([]Range, workerCount)
	for rank := range ranges {
		ranges[rank] = compute(totalLength, workerCount, rank)
	}
	return ranges, nil
}

// WorkRange returns the ordered sequence 1, 2, ..., n.
func WorkRange(n int) []int {
	if n <= 0 {
		return []int{}
	}
	values := make([]int, n)
	for i := range values {
		values[i] = i + 1
	}
	return values
}

func compute(totalLength, workerCount, rank int) Range {
	chunk := totalLength / workerCount
	r := Range{Start: rank * chunk, End: (rank + 1) * chunk}
	if rank == workerCount-1 {
		r.End = totalLength
	}
	return r
}

func validate(totalLength, workerCount int) error {
	if totalLength < 0 {
		return apperrors.ValidationError{
			Field:   "totalLength",
			Message: fmt.Sprintf("must be non-negative, got %d", totalLength),
		}
	}
	if workerCount < 1 {
		return apperrors.ValidationError{
			Field:   "workerCount",
			Message: fmt.Sprintf("must be at least 1, got %d", workerCount),
		}
	}
	return nil
}
