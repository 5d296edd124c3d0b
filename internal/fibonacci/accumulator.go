package fibonacci

import "math/big"

// Accumulator sums Fibonacci values incrementally. The zero value is an empty
// accumulator whose Sum is 0. It is not safe for concurrent use.
type Accumulator struct {
	sum   big.Int
	count int
}

// Add adds F(n) to the running sum.
func (acc *Accumulator) Add(n int) error {
	f, err := Fibonacci(n)
	if err != nil {
		return err
	}
	acc.sum.Add(&acc.sum, f)
	acc.count++
	return nil
}

// Sum returns a copy of the running sum.
func (acc *Accumulator) Sum() *big.Int {
	return new(big.Int).Set(&acc.sum)
}

// Count returns the number of indices added so far.
func (acc *Accumulator) Count() int {
	return acc.count
}

// Reset clears the accumulator for reuse.
func (acc *Accumulator) Reset() {
	acc.sum.SetInt64(0)
	acc.count = 0
}
