// Package calibration measures the distributed sum for several worker counts
// and recommends the fastest one for this machine.
package calibration

// maxCandidates bounds the number of worker counts tried.
const maxCandidates = 8

// GenerateWorkerCounts returns the worker counts worth measuring on a
// machine with numCPU logical processors: powers of two up to numCPU, then
// numCPU itself and twice it to expose oversubscription.
func GenerateWorkerCounts(numCPU int) []int {
	if numCPU < 1 {
		numCPU = 1
	}
	var counts []int
	for w := 1; w < numCPU && len(counts) < maxCandidates-2; w *= 2 {
		counts = append(counts, w)
	}
	counts = append(counts, numCPU)
	if numCPU > 1 {
		counts = append(counts, 2*numCPU)
	}
	return counts
}
