package orchestration

import "math/big"

// Reduce returns the arithmetic sum of the partial sums. Nil entries count
// as zero. The inputs are not modified.
func Reduce(partials []*big.Int) *big.Int {
	total := new(big.Int)
	for _, p := range partials {
		if p != nil {
			total.Add(total, p)
		}
	}
	return total
}
