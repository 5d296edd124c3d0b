package config

import "runtime"

// DefaultWorkers estimates a worker count from the hardware: one rank per
// logical CPU, capped so that the per-rank partitions of the default range
// stay large enough to amortize the collectives.
func DefaultWorkers() int {
	numCPU := runtime.NumCPU()

	switch {
	case numCPU <= 1:
		return 1
	case numCPU <= 16:
		return numCPU
	default:
		return 16
	}
}
